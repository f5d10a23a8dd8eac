package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <path>",
		Short:         "Read the value at a tree path",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], cmd)
		},
	}
}

func runGet(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	client, err := openClient(opts)
	if err != nil {
		return err
	}
	defer client.Close()

	snap, err := client.Get(cmd.Context(), path)
	if err != nil {
		return &ExitError{Code: ExitCommandError, Message: "read failed", Err: err}
	}
	if !snap.Exists {
		formatter.Failure(fmt.Sprintf("no value at %s", snap.Path))
		return NewExitError(ExitFailure, fmt.Sprintf("no value at %s", snap.Path))
	}

	if opts.Format == "json" {
		return formatter.Success(snap.Value)
	}
	encoded, err := json.MarshalIndent(snap.Value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}
