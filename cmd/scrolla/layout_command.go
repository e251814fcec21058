package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scrolla/internal/layout"
	"scrolla/internal/subtitles"
)

func newLayoutCommand(ctx *commandContext) *cobra.Command {
	var alignment string

	cmd := &cobra.Command{
		Use:   "layout TEXT...",
		Short: "Show how caption text wraps and where each line lands",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lc, err := layout.FromConfig(cfg)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("alignment") {
				if lc.VerticalAlignment, err = layout.ParseAlignment(alignment); err != nil {
					return err
				}
			}

			text := subtitles.CleanText(strings.Join(args, " "))
			block, err := lc.Layout(text)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(block.Lines) == 0 {
				fmt.Fprintln(out, "No caption text after cleaning")
				return nil
			}
			rows := make([][]string, 0, len(block.Lines))
			for i, line := range block.Lines {
				rows = append(rows, []string{strconv.Itoa(i + 1), strconv.Itoa(block.LineY[i]), line})
			}
			fmt.Fprintln(out, renderTable([]string{"Line", "Y", "Text"}, rows, []columnAlignment{alignRight, alignRight, alignLeft}))
			fmt.Fprintf(out, "Block: top %d, height %d, max width %d px, alignment %s\n", block.Top, block.Height, lc.MaxWidth, lc.VerticalAlignment)
			return nil
		},
	}

	cmd.Flags().StringVar(&alignment, "alignment", "", "Override captions.vertical_alignment (top, center, bottom)")
	return cmd
}
