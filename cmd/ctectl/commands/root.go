// Package commands implements the ctectl command tree.
package commands

import (
	"github.com/rpattn/ctedash/internal/config"
	"github.com/rpattn/ctedash/internal/logging"
	"github.com/spf13/cobra"
)

var (
	configDir  string
	localMode  bool
	sqlitePath string
	verbose    bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ctectl",
	Short: "Parse, ingest and export CT-e freight documents",
	Long: `ctectl extracts CT-e XML documents into canonical records, stores them per
tenant (Postgres, or a local SQLite file with --local) and exports them as xlsx.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configDir)
		if err != nil {
			return err
		}
		cfg = loaded
		if sqlitePath != "" {
			cfg.SQLite.Path = sqlitePath
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logging.Setup(logging.Config{Level: level, Format: "console", Output: cmd.ErrOrStderr()})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", ".", "directory holding config.yaml and .env")
	rootCmd.PersistentFlags().BoolVar(&localMode, "local", false, "use the local SQLite store instead of Postgres")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite", "", "SQLite file for --local (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
