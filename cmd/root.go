package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/probekit/probekit/internal/config"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "probekit",
	Short: "Inject temporary logging into source files and collect what it emits",
	Long: `probekit lets an AI coding assistant add temporary logging statements to a
project, gather the runtime values they emit over a local HTTP endpoint, and
remove every injected line exactly afterwards. Run "probekit serve" to expose
the operations as MCP tools.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load and merge config files.
		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)
		return nil
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}
