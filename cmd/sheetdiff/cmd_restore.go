package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"sheet-history/internal/crdt"
	"sheet-history/internal/roots"
)

func newRestoreCmd(a *app) *cobra.Command {
	var into string
	var names []string
	cmd := &cobra.Command{
		Use:   "restore <rev>",
		Short: "Copy roots of a stored revision into a snapshot file",
		Long: `restore clones the named roots (all roots when --root is not given) of a
stored revision into the snapshot at --into and rewrites it. A missing
target file starts from an empty document.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRestore(args[0], into, names)
		},
	}
	cmd.Flags().StringVar(&into, "into", "", "target snapshot file")
	cmd.Flags().StringArrayVar(&names, "root", nil, "root to restore (repeatable)")
	_ = cmd.MarkFlagRequired("into")
	return cmd
}

func (a *app) runRestore(revArg, into string, names []string) error {
	data, rev, err := a.readStored(revArg)
	if err != nil {
		return err
	}
	src, err := crdt.Materialize(data)
	if err != nil {
		return errors.Wrapf(err, "decode revision %s", rev.ID)
	}

	dst := crdt.NewDocument()
	switch cur, err := os.ReadFile(into); {
	case err == nil:
		if dst, err = crdt.Materialize(cur); err != nil {
			return errors.Wrapf(err, "decode %s", into)
		}
	case !os.IsNotExist(err):
		return errors.Wrap(err, "read target")
	}

	if err := roots.Restore(dst, src, names...); err != nil {
		return err
	}
	out, err := crdt.Serialize(dst)
	if err != nil {
		return errors.Wrap(err, "encode target")
	}
	if err := writeFileAtomic(into, out); err != nil {
		return err
	}
	a.log.Info("restored", "revision", rev.ID, "into", into, "roots", len(names))
	return nil
}

// writeFileAtomic replaces path through a temp file in the same directory.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create target dir")
	}
	tmp, err := os.CreateTemp(dir, ".restore-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "replace target")
}
