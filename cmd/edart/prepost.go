package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/usfs-r5/edart/internal/logger"
	"github.com/usfs-r5/edart/internal/models"
	"github.com/usfs-r5/edart/internal/prepost"
	"github.com/usfs-r5/edart/internal/scene"
)

const prepostKind = "prePost"

// workDir is the folder holding the extracts and results of a scene.
func (a *app) workDir(tdis string) string {
	ws := scene.WorkspacePath(tdis, prepostKind, "")
	if a.cfg.PrePost.WorkDir == "" {
		return ws
	}
	return filepath.Join(a.cfg.PrePost.WorkDir, filepath.Base(ws))
}

func (a *app) extractCommand() *cobra.Command {
	var samplesPath, rawDatesPath string

	cmd := &cobra.Command{
		Use:   "extract [TDIS path or scene folder]...",
		Short: "Extract per-frame index and mask values at validation plots",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := a.sceneArgs(args)
			if err != nil {
				return err
			}
			if samplesPath != "" {
				a.cfg.PrePost.Samples = samplesPath
			}
			if rawDatesPath != "" {
				a.cfg.PrePost.RawDatesFile = rawDatesPath
			}
			step, err := a.extractStep()
			if err != nil {
				return err
			}
			return a.runBatch(models.KindExtract, paths, a.cfg.PrePost, step)
		},
	}
	cmd.Flags().StringVar(&samplesPath, "samples", "", "CSV of ROIID with x,y or lat,lon columns")
	cmd.Flags().StringVar(&rawDatesPath, "raw-dates", "", "Text file of yyyy.mm.dd dates; reads raw FR_ frames instead of residuals")
	return cmd
}

func (a *app) extractStep() (sceneStep, error) {
	if a.cfg.PrePost.Samples == "" {
		return nil, fmt.Errorf("no samples given: pass --samples or set prepost.samples")
	}
	samples, err := prepost.ReadSamples(a.fs, a.cfg.PrePost.Samples, a.cfg.CoordinateOptions())
	if err != nil {
		return nil, err
	}
	logger.Info("%d sample(s) from %s", len(samples), a.cfg.PrePost.Samples)

	var rawDates []string
	if a.cfg.PrePost.RawDatesFile != "" {
		dates, err := prepost.ReadDates(a.fs, a.cfg.PrePost.RawDatesFile)
		if err != nil {
			return nil, err
		}
		rawDates = prepost.DateTokens(dates)
	}
	opts := a.cfg.ExtractOptions(rawDates)

	return func(tdis string) (outcome, error) {
		work := a.workDir(tdis)
		ex, err := prepost.Extract(a.fs, tdis, work, samples, opts)
		if err != nil {
			return outcome{Workspace: work}, err
		}
		if len(ex.Dates) > 0 {
			if err := prepost.WriteDates(a.fs, filepath.Join(work, prepost.DatesFile), ex.Dates); err != nil {
				return outcome{Workspace: work}, err
			}
		}
		written := 0
		for _, files := range ex.Files {
			written += len(files)
		}
		out := outcome{Workspace: work, Outputs: written, Skipped: written == 0}
		if ex.Skipped > 0 {
			out.Message = fmt.Sprintf("%d sample(s) outside the scene", ex.Skipped)
		}
		return out, nil
	}, nil
}

func (a *app) prepostCommand() *cobra.Command {
	var validationPath, datesPath string
	var extract bool

	cmd := &cobra.Command{
		Use:   "prepost [TDIS path or scene folder]...",
		Short: "Summarise extracted series before and after each plot's disturbance",
		Long: `Prepost reads the extracts of every validation plot, drops cloudy and empty
observations, and writes the per-band medians of up to sample_min observations
(summer first) before t_pre and after t_post into a results CSV.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := a.sceneArgs(args)
			if err != nil {
				return err
			}
			if validationPath != "" {
				a.cfg.PrePost.Validation = validationPath
			}
			if datesPath != "" {
				a.cfg.PrePost.DatesFile = datesPath
			}
			if a.cfg.PrePost.Validation == "" {
				return fmt.Errorf("no validation table given: pass --validation or set prepost.validation")
			}
			rows, err := prepost.ReadValidation(a.fs, a.cfg.PrePost.Validation)
			if err != nil {
				return err
			}

			var extractStep sceneStep
			if extract {
				if extractStep, err = a.extractStep(); err != nil {
					return err
				}
			}

			return a.runBatch(models.KindPrePost, paths, a.cfg.PrePost, func(tdis string) (outcome, error) {
				if extractStep != nil {
					if _, err := extractStep(tdis); err != nil {
						return outcome{}, err
					}
				}
				return a.analyze(tdis, rows)
			})
		},
	}
	cmd.Flags().StringVar(&validationPath, "validation", "", "CSV of ROIID,t_pre,t_post")
	cmd.Flags().StringVar(&datesPath, "dates", "", "Text file of yyyy.mm.dd dates, one per extract row")
	cmd.Flags().BoolVar(&extract, "extract", false, "Extract samples before summarising")
	return cmd
}

func (a *app) analyze(tdis string, rows []models.ValidationRow) (outcome, error) {
	work := a.workDir(tdis)
	out := outcome{Workspace: work}

	datesPath := a.cfg.PrePost.DatesFile
	if datesPath == "" {
		datesPath = filepath.Join(work, prepost.DatesFile)
	}
	dates, err := prepost.ReadDates(a.fs, datesPath)
	if err != nil {
		return out, err
	}

	opts := a.cfg.AnalyzeOptions()
	if len(opts.Bands) == 0 {
		opts.Bands = prepost.DefaultBands
	}
	results, err := prepost.Analyze(a.fs, work, rows, dates, opts)
	if err != nil {
		return out, err
	}

	summarised := 0
	for _, r := range results {
		if r.Pre != nil {
			summarised++
		}
	}
	out.Message = fmt.Sprintf("%d of %d plot(s) summarised", summarised, len(results))

	resultsPath := filepath.Join(work, a.cfg.PrePost.Output)
	if err := prepost.WriteResults(a.fs, resultsPath, opts.Bands, results); err != nil {
		return out, err
	}
	out.Outputs++
	logger.Info("Results written to %s (%s)", resultsPath, out.Message)

	if band := a.cfg.PrePost.RGABand; band != "" && slices.Contains(opts.Bands, band) {
		ext := filepath.Ext(resultsPath)
		tPath := strings.TrimSuffix(resultsPath, ext) + "_T" + ext
		if err := prepost.AddTransformedRGA(a.fs, resultsPath, tPath, band, a.cfg.PrePost.RGAScale); err != nil {
			return out, err
		}
		out.Outputs++
		logger.Debug("Transformed %s written to %s", band, tPath)
	}
	return out, nil
}
