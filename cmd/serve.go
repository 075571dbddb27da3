package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/probekit/probekit/internal/mcpserver"
	"github.com/probekit/probekit/internal/session"
)

var serveDebug bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the instrumentation tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(serveDebug)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer logger.Sync() //nolint:errcheck // stderr sync failure is uninteresting

		controller := session.NewController(GetConfig(), logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = mcpserver.New(controller).Run(ctx)

		// An interrupted session must not leave injected code behind.
		if res, stopErr := controller.Stop(context.Background()); stopErr != nil {
			logger.Error("session cleanup failed", zap.Error(stopErr))
		} else if res.Stopped {
			logger.Info("session cleaned up on exit", zap.Int("removed", res.Removed))
		}

		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("serve MCP: %w", err)
		}
		return nil
	},
}

// newLogger builds the process logger. Output goes to stderr only: stdout
// belongs to the MCP stdio transport.
func newLogger(debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	if debug {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}

func init() {
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging on stderr")
	rootCmd.AddCommand(serveCmd)
}
