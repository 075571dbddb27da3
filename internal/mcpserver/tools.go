package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/probekit/probekit/internal/instrument"
	"github.com/probekit/probekit/internal/session"
)

// StartSessionInput is the MCP tool input for starting a debug session.
type StartSessionInput struct {
	Port int `json:"port,omitempty" jsonschema:"collector port; defaults to the configured port when omitted"`
}

// StartSessionResult reports the started session.
type StartSessionResult struct {
	SessionID string `json:"sessionId" jsonschema:"session identifier"`
	Port      int    `json:"port" jsonschema:"port the log collector is listening on"`
	LogFile   string `json:"logFile" jsonschema:"path of the append-only log store"`
	StartedAt string `json:"startedAt" jsonschema:"RFC3339 timestamp when the session started"`
}

// StartSessionTool defines the start_session tool schema.
func StartSessionTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "start_session",
		Description: "Start a debug session: reset the log store and launch the local log collector. Fails if a session is already active.",
	}
}

// StartSessionHandler executes start_session.
func StartSessionHandler(c *session.Controller) mcp.ToolHandlerFor[StartSessionInput, StartSessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input StartSessionInput) (*mcp.CallToolResult, StartSessionResult, error) {
		info, err := c.Start(ctx, input.Port)
		if err != nil {
			return nil, StartSessionResult{}, err
		}
		return nil, StartSessionResult{
			SessionID: info.ID,
			Port:      info.Port,
			LogFile:   info.LogPath,
			StartedAt: info.StartedAt.Format(time.RFC3339),
		}, nil
	}
}

// StopSessionInput is empty; stop_session takes no arguments.
type StopSessionInput struct{}

// StopSessionResult reports the teardown outcome.
type StopSessionResult struct {
	Stopped  bool     `json:"stopped" jsonschema:"whether an active session was actually stopped"`
	Removed  int      `json:"instrumentsRemoved" jsonschema:"instruments force-removed during teardown"`
	Failures []string `json:"failures,omitempty" jsonschema:"files whose injected code could not be removed"`
}

// StopSessionTool defines the stop_session tool schema.
func StopSessionTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "stop_session",
		Description: "Stop the active debug session: force-remove all remaining instruments and shut down the log collector. No-op when no session is active.",
	}
}

// StopSessionHandler executes stop_session.
func StopSessionHandler(c *session.Controller) mcp.ToolHandlerFor[StopSessionInput, StopSessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ StopSessionInput) (*mcp.CallToolResult, StopSessionResult, error) {
		res, err := c.Stop(ctx)
		if err != nil {
			return nil, StopSessionResult{}, err
		}
		return nil, StopSessionResult{Stopped: res.Stopped, Removed: res.Removed, Failures: res.Failures}, nil
	}
}

// AddInstrumentInput names the target of a new logging point.
type AddInstrumentInput struct {
	File    string   `json:"file" jsonschema:"target file, absolute or relative to the working directory"`
	Line    int      `json:"line" jsonschema:"1-indexed line where the logging code is inserted"`
	Capture []string `json:"capture,omitempty" jsonschema:"variable names to record when the instrument fires"`
}

// InstrumentSummary is the wire view of one instrument.
type InstrumentSummary struct {
	ID        string   `json:"id" jsonschema:"instrument identifier"`
	File      string   `json:"file" jsonschema:"resolved absolute target path"`
	Line      int      `json:"line" jsonschema:"insertion line"`
	Language  string   `json:"language" jsonschema:"inferred source language"`
	Capture   []string `json:"capture" jsonschema:"captured variable names"`
	CreatedAt string   `json:"createdAt" jsonschema:"RFC3339 creation timestamp"`
	Stale     bool     `json:"stale,omitempty" jsonschema:"true when the file was edited externally after insertion"`
}

func summarize(in instrument.Instrument) InstrumentSummary {
	return InstrumentSummary{
		ID:        in.ID,
		File:      in.File,
		Line:      in.Line,
		Language:  in.Language.String(),
		Capture:   in.Captures,
		CreatedAt: in.CreatedAt.Format(time.RFC3339),
		Stale:     in.Stale,
	}
}

// AddInstrumentTool defines the add_instrument tool schema.
func AddInstrumentTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "add_instrument",
		Description: "Inject a logging statement at a file and line. The injected code posts captured variables to the session's log collector and is removed exactly later.",
	}
}

// AddInstrumentHandler executes add_instrument.
func AddInstrumentHandler(c *session.Controller) mcp.ToolHandlerFor[AddInstrumentInput, InstrumentSummary] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input AddInstrumentInput) (*mcp.CallToolResult, InstrumentSummary, error) {
		if input.File == "" {
			return nil, InstrumentSummary{}, fmt.Errorf("file is required")
		}
		if input.Line == 0 {
			return nil, InstrumentSummary{}, fmt.Errorf("line is required")
		}
		in, err := c.AddInstrument(input.File, input.Line, input.Capture)
		if err != nil {
			return nil, InstrumentSummary{}, err
		}
		return nil, summarize(in), nil
	}
}

// RemoveInstrumentsInput optionally scopes removal to one file.
type RemoveInstrumentsInput struct {
	File string `json:"file,omitempty" jsonschema:"remove only this file's instruments; all instruments when omitted"`
}

// RemoveInstrumentsResult reports how many instruments were removed.
type RemoveInstrumentsResult struct {
	Removed int `json:"removed" jsonschema:"number of instruments removed"`
}

// RemoveInstrumentsTool defines the remove_instruments tool schema.
func RemoveInstrumentsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "remove_instruments",
		Description: "Remove injected logging code, either for one file or for every instrument in the session.",
	}
}

// RemoveInstrumentsHandler executes remove_instruments.
func RemoveInstrumentsHandler(c *session.Controller) mcp.ToolHandlerFor[RemoveInstrumentsInput, RemoveInstrumentsResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input RemoveInstrumentsInput) (*mcp.CallToolResult, RemoveInstrumentsResult, error) {
		removed, err := c.RemoveInstruments(input.File)
		if err != nil {
			return nil, RemoveInstrumentsResult{}, err
		}
		return nil, RemoveInstrumentsResult{Removed: removed}, nil
	}
}

// ListInstrumentsInput is empty; list_instruments takes no arguments.
type ListInstrumentsInput struct{}

// ListInstrumentsResult lists live instruments.
type ListInstrumentsResult struct {
	Active      bool                `json:"active" jsonschema:"whether a session is active"`
	Instruments []InstrumentSummary `json:"instruments" jsonschema:"live instruments in insertion order"`
}

// ListInstrumentsTool defines the list_instruments tool schema.
func ListInstrumentsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_instruments",
		Description: "List the live instruments. Returns an empty list when no session is active.",
	}
}

// ListInstrumentsHandler executes list_instruments.
func ListInstrumentsHandler(c *session.Controller) mcp.ToolHandlerFor[ListInstrumentsInput, ListInstrumentsResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ ListInstrumentsInput) (*mcp.CallToolResult, ListInstrumentsResult, error) {
		list := c.ListInstruments()
		out := make([]InstrumentSummary, 0, len(list))
		for _, in := range list {
			out = append(out, summarize(in))
		}
		return nil, ListInstrumentsResult{Active: c.Active(), Instruments: out}, nil
	}
}

// ReadLogsInput selects the output format.
type ReadLogsInput struct {
	Format string `json:"format,omitempty" jsonschema:"'json' (default) for a parsed entry array, 'raw' for the NDJSON text"`
}

// ReadLogsResult carries the rendered log content.
type ReadLogsResult struct {
	Logs string `json:"logs" jsonschema:"captured log entries in the requested format"`
}

// ReadLogsTool defines the read_logs tool schema.
func ReadLogsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "read_logs",
		Description: "Read the entries captured by the session's log collector.",
	}
}

// ReadLogsHandler executes read_logs.
func ReadLogsHandler(c *session.Controller) mcp.ToolHandlerFor[ReadLogsInput, ReadLogsResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input ReadLogsInput) (*mcp.CallToolResult, ReadLogsResult, error) {
		logs, err := c.ReadLogs(input.Format)
		if err != nil {
			return nil, ReadLogsResult{}, err
		}
		return nil, ReadLogsResult{Logs: logs}, nil
	}
}

// ClearLogsInput is empty; clear_logs takes no arguments.
type ClearLogsInput struct{}

// ClearLogsResult acknowledges the truncation.
type ClearLogsResult struct {
	Cleared bool `json:"cleared" jsonschema:"whether the log store was truncated"`
}

// ClearLogsTool defines the clear_logs tool schema.
func ClearLogsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "clear_logs",
		Description: "Truncate the session's log store.",
	}
}

// ClearLogsHandler executes clear_logs.
func ClearLogsHandler(c *session.Controller) mcp.ToolHandlerFor[ClearLogsInput, ClearLogsResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ ClearLogsInput) (*mcp.CallToolResult, ClearLogsResult, error) {
		if err := c.ClearLogs(); err != nil {
			return nil, ClearLogsResult{}, err
		}
		return nil, ClearLogsResult{Cleared: true}, nil
	}
}
