package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/probekit/probekit/internal/logstore"
	"github.com/probekit/probekit/internal/tui"
)

var plainOutput bool

var logsCmd = &cobra.Command{
	Use:   "logs [file]",
	Short: "View a captured debug log file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := GetConfig().LogFile
		if len(args) == 1 {
			path = args[0]
		}

		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("log file not found: %s", path)
			}
			return err
		}

		entries, err := logstore.New(path).ReadAll()
		if err != nil {
			return err
		}

		// Fall back to plain output when stdout is not a terminal (pipes, CI).
		if plainOutput || !term.IsTerminal(os.Stdout.Fd()) {
			printEntries(entries)
			return nil
		}
		return tui.Run(entries, path)
	},
}

// printEntries writes a plain-text listing to stdout.
func printEntries(entries []map[string]any) {
	if len(entries) == 0 {
		fmt.Println("No log entries.")
		return
	}
	for _, e := range entries {
		fmt.Printf("[%v] %v %v\n", e["receivedAt"], e["id"], e["location"])
		if data, ok := e["data"].(map[string]any); ok && len(data) > 0 {
			for k, v := range data {
				fmt.Printf("    %s = %v\n", k, v)
			}
		}
	}
	fmt.Printf("%d entries.\n", len(entries))
}

func init() {
	logsCmd.Flags().BoolVar(&plainOutput, "plain", false, "Print plain text instead of the interactive viewer")
	rootCmd.AddCommand(logsCmd)
}
