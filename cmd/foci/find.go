package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	findmaxima "github.com/aherbert/gdsc-sub001"
)

func newFindCommand() *cobra.Command {
	var maskOutPath string

	cmd := &cobra.Command{
		Use:   "find <image>",
		Short: "Find local intensity maxima in a greyscale image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			src, err := loadSource(args[0])
			if err != nil {
				return err
			}

			result, err := findmaxima.FindMaxima(context.Background(), src, findmaxima.Options{
				Config: cfg,
				Log:    log,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d peaks\n", result.RunID, len(result.Peaks))
			for _, p := range result.Peaks {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t(%d,%d,%d)\tmax=%g\tcount=%d\ttotal=%g\n",
					p.ID, p.X, p.Y, p.Z, p.MaxValue, p.Count, p.TotalIntensity)
			}

			if maskOutPath != "" && result.Mask != nil {
				if err := writeMask(maskOutPath, src, result.Mask); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&maskOutPath, "mask-out", "", "write the labelled mask volume to this path")
	return cmd
}
