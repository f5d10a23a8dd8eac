package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/firemap/internal/remote"
	"github.com/roach88/firemap/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // optional YAML config path
	DB      string // SQLite tree database path
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the firemap CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "firemap",
		Short: "firemap - identity-mapped record store over a live tree",
		Long:  "Inspect and mutate a firemap tree database: read paths, write atomic updates, watch live changes, and validate model declarations.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "tree database path (overrides config)")

	// Add subcommands
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openClient resolves the database path from flags or config and opens
// the SQLite backend.
func openClient(opts *RootOptions) (*remote.SQLite, error) {
	dbPath := opts.DB
	if dbPath == "" && opts.Config != "" {
		cfg, err := store.LoadConfig(opts.Config)
		if err != nil {
			return nil, err
		}
		dbPath = cfg.Database
	}
	if dbPath == "" {
		return nil, NewExitError(ExitCommandError, "no database: pass --db or set database in the config file")
	}
	return remote.OpenSQLite(dbPath)
}
