package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sourcelens/audit-cli/internal/pipeline"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage the crawl snapshot cache",
}

// -- snapshots prune --

var snapshotsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired snapshots from the cache",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		deleted, err := st.DeleteExpiredSnapshots(ctx)
		if err != nil {
			return eris.Wrap(err, "snapshots prune")
		}

		fmt.Fprintf(os.Stdout, "Deleted %d expired snapshot(s).\n", deleted)
		return nil
	},
}

// -- snapshots validate --

var snapshotsValidateCmd = &cobra.Command{
	Use:   "validate <snapshot.yaml>",
	Short: "Validate a snapshot file without running an audit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := pipeline.LoadSnapshot(args[0])
		if err != nil {
			return err
		}

		words := 0
		for _, p := range snap.ExtractedPages() {
			words += p.WordCount
		}
		fmt.Fprintf(os.Stdout, "OK: %s (%s), %d page(s), %d words\n",
			snap.CompanyName, snap.Domain, len(snap.Pages), words)
		return nil
	},
}

func init() {
	snapshotsCmd.AddCommand(snapshotsPruneCmd)
	snapshotsCmd.AddCommand(snapshotsValidateCmd)
	rootCmd.AddCommand(snapshotsCmd)
}
