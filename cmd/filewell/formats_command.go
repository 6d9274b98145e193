package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newFormatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "formats FILE...",
		Short: "Show the formats each file can be converted to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			p := newPipeline(cmd.Context(), cfg, nil)

			rows := make([][]string, 0, len(args))
			for _, arg := range args {
				src, err := readSource(arg)
				if err != nil {
					return err
				}
				snap := p.store.Admit(src)
				descriptors, err := p.store.AvailableFormats(snap.ID)
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(descriptors))
				for _, d := range descriptors {
					keys = append(keys, d.Key)
				}
				available := strings.Join(keys, ", ")
				if available == "" {
					available = "none"
				}
				current := snap.CurrentFormat
				if current == "" {
					current = "-"
				}
				rows = append(rows, []string{
					snap.Name,
					snap.ContentType,
					humanize.IBytes(uint64(snap.Size)),
					titleCase(string(snap.Category)),
					current,
					available,
				})
			}

			out := cmd.OutOrStdout()
			headers := []string{"File", "Type", "Size", "Category", "Current", "Available"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			return nil
		},
	}
}
