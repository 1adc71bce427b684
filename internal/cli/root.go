package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"restaurant-sync/internal/common/config"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the restaurant-sync root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "restaurant-sync",
		Short: "Restaurant order synchronization",
		Long:  "Serves the order API and runs role-scoped dashboard sessions that keep every screen's view of the order lifecycle current.",
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config (default: first of config.yaml, config.example.yaml)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewDashboardCommand(opts))

	return cmd
}

func loadConfig(opts *RootOptions) (config.App, error) {
	path := opts.ConfigPath
	if path == "" {
		found, err := config.Find()
		if err != nil {
			return config.App{}, fmt.Errorf("no config file found, pass --config")
		}
		path = found
	}
	return config.Load(path)
}
