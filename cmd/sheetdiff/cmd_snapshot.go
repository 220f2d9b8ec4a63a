package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"sheet-history/internal/crdt"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage stored snapshot revisions",
	}

	var label string
	add := &cobra.Command{
		Use:   "add <file>",
		Short: "Store a snapshot file as a new revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSnapshotAdd(cmd.OutOrStdout(), args[0], label)
		},
	}
	add.Flags().StringVarP(&label, "label", "l", "", "free-form label for the revision")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored revisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSnapshotList(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func (a *app) runSnapshotAdd(stdout io.Writer, path, label string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read snapshot")
	}
	if _, err := crdt.Materialize(data); err != nil {
		return errors.Wrapf(err, "%s is not a readable snapshot", path)
	}
	s, err := a.store()
	if err != nil {
		return err
	}
	rev, err := s.Put(data, label)
	if err != nil {
		return err
	}
	a.log.Debug("stored revision", "id", rev.ID, "hash", rev.Hash)
	_, err = fmt.Fprintln(stdout, rev.ID)
	return err
}

func (a *app) runSnapshotList(stdout io.Writer) error {
	s, err := a.store()
	if err != nil {
		return err
	}
	revs, err := s.List()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSIZE\tHASH\tLABEL")
	for _, r := range revs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.ID, r.Created.UTC().Format(time.RFC3339), r.Size, r.ShortHash(), r.Label)
	}
	return tw.Flush()
}
