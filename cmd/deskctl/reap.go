package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reapDryRun bool

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Hard-delete complaints soft-deleted longer than retention.days",
	RunE:  runReap,
}

func init() {
	reapCmd.Flags().BoolVar(&reapDryRun, "dry-run", false, "only count what would be deleted")
}

func runReap(cmd *cobra.Command, _ []string) error {
	a, closeFn, err := bootstrap()
	if err != nil {
		return err
	}
	defer closeFn()
	if reapDryRun {
		a.Cfg.Retention.DryRun = true
	}

	res, err := a.Reaper().RunOnce(cmd.Context())
	if err != nil {
		return err
	}
	verb := "deleted"
	if res.DryRun {
		verb = "would delete"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reap: %s %d complaints (%d logs) soft-deleted before %s\n",
		verb, res.Complaints, res.Logs, res.Cutoff.Format("2006-01-02 15:04"))
	return nil
}
