package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scrolla/internal/config"
	"scrolla/internal/imagenorm"
	"scrolla/internal/services"
)

func newNormalizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize SOURCE DEST",
		Short: "Letterbox one image onto the configured canvas",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			src, err := config.ExpandPath(args[0])
			if err != nil {
				return services.Wrap(services.ErrValidation, "normalize", "source", "resolve source path", err)
			}
			dst, err := config.ExpandPath(args[1])
			if err != nil {
				return services.Wrap(services.ErrValidation, "normalize", "dest", "resolve destination path", err)
			}
			normalizer, err := imagenorm.New(imagenorm.Options{
				Width:       cfg.Canvas.Width,
				Height:      cfg.Canvas.Height,
				Background:  cfg.Canvas.Background,
				JPEGQuality: cfg.Encoding.ImageJPEGQuality,
			}, logger)
			if err != nil {
				return err
			}
			result, err := normalizer.Normalize(cmd.Context(), src, dst)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Cached {
				fmt.Fprintf(out, "%s already exists; left unchanged\n", result.Path)
				return nil
			}
			fmt.Fprintf(out, "%dx%d -> %dx%d canvas, image at %v\n", result.SourceWidth, result.SourceHeight, cfg.Canvas.Width, cfg.Canvas.Height, result.Placed)
			fmt.Fprintln(out, result.Path)
			return nil
		},
	}
}
