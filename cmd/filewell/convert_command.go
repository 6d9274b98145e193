package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"filewell/internal/config"
	"filewell/internal/conversion"
	"filewell/internal/dispatch"
	"filewell/internal/fileutil"
	"filewell/internal/formats"
	"filewell/internal/logging"
	"filewell/internal/preflight"
	"filewell/internal/textutil"
)

type convertOptions struct {
	target    string
	outDir    string
	showStats bool
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Convert files to a target format",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return runConvert(cmd.Context(), cmd.OutOrStdout(), cfg, logger, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.target, "to", "t", "", "Target format key (see `filewell formats`)")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "Output directory (defaults to paths.output_dir)")
	cmd.Flags().BoolVar(&opts.showStats, "stats", false, "Print conversion counters after the run")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

type convertOutcome struct {
	snap conversion.Snapshot
	path string
	err  error
}

func runConvert(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger, args []string, opts convertOptions) error {
	target := strings.ToLower(strings.TrimSpace(opts.target))
	outDir := cfg.Paths.OutputDir
	if strings.TrimSpace(opts.outDir) != "" {
		expanded, err := config.ExpandPath(opts.outDir)
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		outDir = expanded
	}
	if check := preflight.CheckDirectoryAccess("Output directory", outDir); !check.Passed {
		return errors.New(check.Detail)
	}

	sources := make([]dispatch.Source, 0, len(args))
	for _, arg := range args {
		src, err := readSource(arg)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	p := newPipeline(ctx, cfg, logger)
	defer func() {
		if err := p.close(context.WithoutCancel(ctx)); err != nil {
			logging.WarnWithContext(p.logger, "pipeline shutdown failed", "pipeline_close_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "engine scratch files may remain in the cache directory"),
			)
		}
	}()

	ids := make([]int64, 0, len(sources))
	needsEngine := false
	for _, src := range sources {
		snap := p.store.Admit(src)
		ids = append(ids, snap.ID)
		if snap.Category == formats.CategoryAudio || snap.Category == formats.CategoryVideo {
			needsEngine = true
		}
	}
	if needsEngine {
		if failed := preflight.Failed(preflight.RunAll(ctx, cfg)); len(failed) > 0 {
			return fmt.Errorf("%s check failed: %s", failed[0].Name, failed[0].Detail)
		}
	}

	for _, id := range ids {
		if err := p.store.Select(id, target); err != nil {
			return err
		}
		if _, err := p.store.Start(id); err != nil {
			return err
		}
	}

	outcomes := make([]convertOutcome, 0, len(ids))
	for _, id := range ids {
		snap, err := p.store.Wait(ctx, id)
		if err != nil {
			return err
		}
		outcome := convertOutcome{snap: snap}
		if snap.Status == conversion.StatusDone {
			outcome.path, outcome.err = saveResult(p, snap, outDir)
		}
		_ = p.store.Remove(id)
		outcomes = append(outcomes, outcome)
	}

	colorize := shouldColorize(out)
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Target", "Result", "Detail"},
		outcomeRows(outcomes, colorize),
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	))

	if opts.showStats {
		for _, line := range renderSectionHeader("conversion stats", colorize) {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out, renderStats(p))
	}

	failures := 0
	for _, o := range outcomes {
		if o.err != nil || o.snap.Status != conversion.StatusDone {
			failures++
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d conversions failed", failures, len(outcomes))
	}
	return nil
}

func saveResult(p *pipeline, snap conversion.Snapshot, outDir string) (string, error) {
	handle, err := p.store.Result(snap.ID)
	if err != nil {
		return "", err
	}
	data, err := handle.Bytes()
	if err != nil {
		return "", err
	}
	name := formats.SuggestName(textutil.SanitizeFileName(snap.Name), p.registry.Extension(snap.Target))
	dst, err := fileutil.UniquePath(outDir, name)
	if err != nil {
		return "", err
	}
	if err := fileutil.WriteVerified(dst, bytes.NewReader(data), int64(len(data)), 0o644); err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	return dst, nil
}

func outcomeRows(outcomes []convertOutcome, colorize bool) [][]string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		var kind statusKind
		var result, detail string
		switch {
		case o.err != nil:
			kind, result, detail = statusError, "save failed", o.err.Error()
		case o.snap.Status == conversion.StatusDone:
			kind, result = statusOK, "done"
			detail = fmt.Sprintf("%s (%s)", o.path, humanize.IBytes(uint64(o.snap.ResultSize)))
		default:
			kind, result, detail = statusError, o.snap.ErrorKind, o.snap.LastError
			if dispatch.RetryableKind(o.snap.ErrorKind) {
				detail += "; retrying may succeed"
			}
		}
		if colorize {
			result = statusKindColor(kind) + result + ansiReset
		}
		rows = append(rows, []string{o.snap.Name, o.snap.Target, result, detail})
	}
	return rows
}

func renderStats(p *pipeline) string {
	families, err := p.gatherer.Gather()
	if err != nil {
		return fmt.Sprintf("stats unavailable: %v", err)
	}
	var rows [][]string
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, pair := range metric.GetLabel() {
				labels = append(labels, pair.GetName()+"="+pair.GetValue())
			}
			var value string
			switch {
			case metric.GetCounter() != nil:
				value = fmt.Sprintf("%g", metric.GetCounter().GetValue())
			case metric.GetGauge() != nil:
				value = fmt.Sprintf("%g", metric.GetGauge().GetValue())
			case metric.GetHistogram() != nil:
				h := metric.GetHistogram()
				value = fmt.Sprintf("%d in %.3fs", h.GetSampleCount(), h.GetSampleSum())
			default:
				continue
			}
			rows = append(rows, []string{family.GetName(), strings.Join(labels, ","), value})
		}
	}
	return renderTable([]string{"Metric", "Labels", "Value"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
}
