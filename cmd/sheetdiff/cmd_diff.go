package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"sheet-history/internal/bundle"
	"sheet-history/internal/config"
	"sheet-history/internal/delta"
	"sheet-history/internal/export"
	"sheet-history/internal/report"
	"sheet-history/internal/validate"
)

type diffFlags struct {
	format   string
	out      string
	bundle   string
	validate bool
}

func newDiffCmd(a *app) *cobra.Command {
	var f diffFlags
	cmd := &cobra.Command{
		Use:   "diff <before> <after>",
		Short: "Diff two snapshots (file paths or rev:<id>)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDiff(cmd.OutOrStdout(), f, args[0], args[1])
		},
	}
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "output format: json, text or xlsx (default output.format)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "write output to a file instead of stdout")
	cmd.Flags().StringVar(&f.bundle, "bundle", "", "also write a review bundle zip")
	cmd.Flags().BoolVar(&f.validate, "validate", false, "check the diff's structural guarantees before writing it")
	return cmd
}

func (a *app) runDiff(stdout io.Writer, f diffFlags, beforeArg, afterArg string) error {
	format := f.format
	if format == "" {
		format = a.cfg.Output.Format
	}
	switch format {
	case config.FormatJSON, config.FormatText, config.FormatXLSX:
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	before, err := a.readSnapshot(beforeArg)
	if err != nil {
		return err
	}
	after, err := a.readSnapshot(afterArg)
	if err != nil {
		return err
	}
	d, err := delta.Engine{Logger: a.log}.Diff(before, after)
	if err != nil {
		return errors.Wrap(err, "diff")
	}
	if f.validate {
		if err := validate.Diff(d); err != nil {
			return errors.Wrap(err, "invalid diff")
		}
	}

	opt := report.Options{Context: a.cfg.Report.Context, MaxPatchBytes: a.cfg.Report.MaxPatchBytes}
	if f.bundle != "" {
		err := bundle.WriteDiff(f.bundle, bundle.Contents{
			Diff:    d,
			Report:  report.Text(d, opt),
			Patches: report.Patches(d, opt),
			Before:  before,
			After:   after,
		})
		if err != nil {
			return err
		}
		a.log.Info("wrote bundle", "path", f.bundle)
	}

	var buf bytes.Buffer
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", a.cfg.Output.Indent)
		if err := enc.Encode(d); err != nil {
			return errors.Wrap(err, "encode diff")
		}
	case config.FormatText:
		buf.WriteString(report.Text(d, opt))
	case config.FormatXLSX:
		if err := export.WriteXLSX(&buf, d); err != nil {
			return err
		}
	}

	if f.out == "" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(f.out, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "write output")
	}
	return nil
}
