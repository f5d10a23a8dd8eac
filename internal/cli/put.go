package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "put <path> <json-value>",
		Short: "Atomically write a value at a tree path",
		Long: `Atomically write one path in the tree database.

The value is JSON: an object fans out into child paths, a scalar
replaces the path, and null removes the path and its subtree.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runPut(opts *RootOptions, path, rawValue string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	var value any
	if err := json.Unmarshal([]byte(rawValue), &value); err != nil {
		return &ExitError{Code: ExitCommandError, Message: "value is not valid JSON", Err: err}
	}

	client, err := openClient(opts)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Update(cmd.Context(), map[string]any{path: value}); err != nil {
		return &ExitError{Code: ExitCommandError, Message: "write failed", Err: err}
	}

	return formatter.Success(fmt.Sprintf("wrote %s", path))
}
