package cli

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/firemap/internal/remote"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <path>",
		Short: "Stream live snapshots of a tree path",
		Long: `Subscribe to a tree path and print one line per snapshot: the
current value first, then every subsequent change, until interrupted.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(rootOpts, args[0], cmd)
		},
	}
}

func runWatch(opts *RootOptions, path string, cmd *cobra.Command) error {
	client, err := openClient(opts)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	sub := client.Ref(path).Listen(func(snap remote.Snapshot) {
		fmt.Fprintf(out, "%s %s\n", snap.Path, encodeSnapshot(snap))
	})
	defer sub.Close()

	<-ctx.Done()
	return nil
}

// encodeSnapshot renders one snapshot value as a single line.
func encodeSnapshot(snap remote.Snapshot) string {
	if !snap.Exists {
		return "(absent)"
	}
	encoded, err := json.Marshal(snap.Value)
	if err != nil {
		return fmt.Sprintf("(unencodable: %v)", err)
	}
	return string(encoded)
}
