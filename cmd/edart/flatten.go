package main

import (
	"github.com/spf13/cobra"

	"github.com/usfs-r5/edart/internal/flatten"
	"github.com/usfs-r5/edart/internal/models"
)

func (a *app) flattenCommand() *cobra.Command {
	var (
		yearStart, yearEnd int
		method, ext        string
		moisture, redo     bool
	)

	cmd := &cobra.Command{
		Use:   "flatten [TDIS path or scene folder]...",
		Short: "Flatten event timing and confidence into per-year rasters",
		Long: `Flatten reads the EVTY and ConfEV stacks of each scene and writes one event and
one confidence raster per year into <scene>_<TDIS>_flattenConf_<CalenderYear|WaterYear>,
next to the TDIS folder. Scenes whose working folder already exists are skipped
unless --redo is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := a.sceneArgs(args)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("year-start") {
				a.cfg.Flatten.YearStart = yearStart
			}
			if f.Changed("year-end") {
				a.cfg.Flatten.YearEnd = yearEnd
			}
			if f.Changed("method") {
				a.cfg.Flatten.Method = method
			}
			if f.Changed("moisture-year") {
				a.cfg.Flatten.MoistureYear = moisture
			}
			if f.Changed("redo") {
				a.cfg.Flatten.RedoExisting = redo
			}
			if f.Changed("ext") {
				a.cfg.Raster.Extension = ext
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			opts := a.cfg.FlattenOptions()
			return a.runBatch(models.KindFlatten, paths, opts, func(tdis string) (outcome, error) {
				res, err := flatten.Run(a.files, tdis, "edart flatten", opts)
				if err != nil {
					return outcome{}, err
				}
				out := outcome{Workspace: res.Workspace, Outputs: res.Written, Skipped: res.Skipped}
				if res.Skipped {
					out.Message = "working folder exists"
				}
				return out, nil
			})
		},
	}

	cmd.Flags().IntVar(&yearStart, "year-start", 0, "First year to flatten")
	cmd.Flags().IntVar(&yearEnd, "year-end", 0, "Last year to flatten (inclusive)")
	cmd.Flags().StringVar(&method, "method", "", "Reduction: last, maxconf or minpp")
	cmd.Flags().BoolVar(&moisture, "moisture-year", false, "Use October to September moisture years")
	cmd.Flags().BoolVar(&redo, "redo", false, "Recreate existing working folders")
	cmd.Flags().StringVar(&ext, "ext", "", "Output raster extension (.tif or .bsq)")
	return cmd
}
