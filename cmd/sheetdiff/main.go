// Command sheetdiff compares spreadsheet snapshots and manages a local
// revision store of them.
//
//	sheetdiff diff <before> <after> [--format json|text|xlsx] [--out F] [--bundle Z] [--validate]
//	sheetdiff snapshot add <file> [--label L]
//	sheetdiff snapshot list
//	sheetdiff restore <rev> --into <file> [--root name]...
//	sheetdiff version
//
// A snapshot argument is a file path or rev:<id> naming a stored revision.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"sheet-history/internal/config"
	"sheet-history/internal/meta"
	"sheet-history/internal/store"
)

const revPrefix = "rev:"

// app holds the state shared by all subcommands.
type app struct {
	configPath string
	storeDir   string
	verbose    bool

	cfg config.Config
	log *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "sheetdiff",
		Short:         "Semantic diffs between spreadsheet snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $HOME/.sheetdiff/sheetdiff.yaml)")
	root.PersistentFlags().StringVar(&a.storeDir, "store", "", "revision store directory (overrides store.dir)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newDiffCmd(a), newSnapshotCmd(a), newRestoreCmd(a), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), meta.Detect())
			return err
		},
	}
}

func (a *app) setup(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.storeDir != "" {
		cfg.Store.Dir = a.storeDir
	}
	level := cfg.SlogLevel()
	if a.verbose {
		level = slog.LevelDebug
	}
	a.cfg = cfg
	a.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func (a *app) store() (*store.Store, error) {
	return store.Open(a.cfg.Store.Dir)
}

// readStored returns the bytes of the revision named by id or id prefix.
func (a *app) readStored(id string) ([]byte, store.Revision, error) {
	s, err := a.store()
	if err != nil {
		return nil, store.Revision{}, err
	}
	rev, err := s.Get(strings.TrimPrefix(id, revPrefix))
	if err != nil {
		return nil, store.Revision{}, errors.Wrapf(err, "revision %q", id)
	}
	data, err := s.Read(rev)
	if err != nil {
		return nil, rev, err
	}
	return data, rev, nil
}

// readSnapshot resolves a snapshot argument: rev:<id> or a file path.
func (a *app) readSnapshot(arg string) ([]byte, error) {
	if strings.HasPrefix(arg, revPrefix) {
		data, rev, err := a.readStored(arg)
		if err != nil {
			return nil, err
		}
		a.log.Debug("read revision", "id", rev.ID, "size", rev.Size)
		return data, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, errors.Wrap(err, "read snapshot")
	}
	return data, nil
}
