package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/edwardbickerton/handson-ml3/pkg/log"
)

var (
	appConfig  Config
	configPath string
	logLevel   string
)

// NewRootCommand builds the mlsearch CLI.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "mlsearch",
		Short:         "Hyperparameter search over CSV datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			appConfig = cfg

			log.SetupLogger(logLevel)
			log.InstallZerologWarnings(os.Stderr)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default .mlsearch.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newSearchCommand())

	return root
}
