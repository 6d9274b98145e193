package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"filewell/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories and the encoder engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			path := ctx.configPath
			if !ctx.configSeen {
				path = "defaults (no file at " + ctx.configPath + ")"
			}
			fmt.Fprintln(out, renderStatusLine("Config", statusInfo, path, colorize))
			fmt.Fprintln(out, renderStatusLine("Engine", statusInfo, cfg.Engine.Kind, colorize))

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("readiness", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d readiness check(s) failed", len(failed))
			}
			return nil
		},
	}
}
