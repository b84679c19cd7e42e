package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/usfs-r5/edart/internal/logger"
	"github.com/usfs-r5/edart/internal/models"
	"github.com/usfs-r5/edart/internal/raster"
)

type combineOptions struct {
	Inputs    []string `json:"inputs"`
	NoData    float64  `json:"nodata"`
	Crop      int      `json:"crop"`
	Overwrite bool     `json:"overwrite"`
}

func (a *app) combineCommand() *cobra.Command {
	var opts combineOptions

	cmd := &cobra.Command{
		Use:   "combine <output> <input> <input>...",
		Short: "Code every distinct combination of values across aligned rasters",
		Long: `Combine writes a raster where each distinct tuple of input values gets a code
1, 2, ... in the order first met, plus <output>.csv listing the codes. Cells where
any input holds the nodata value are 0.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := args[0]
			opts.Inputs = args[1:]
			optJSON, err := json.Marshal(opts)
			if err != nil {
				return fmt.Errorf("failed to marshal options: %w", err)
			}
			_, err = a.runOne(models.KindCombine, out, string(optJSON), func(target string) (outcome, error) {
				return a.combine(target, opts)
			})
			return err
		},
	}
	cmd.Flags().Float64Var(&opts.NoData, "nodata", 0, "Input value treated as nodata")
	cmd.Flags().IntVar(&opts.Crop, "crop", 0, "Cells to remove from every edge before combining")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "Replace an existing output")
	return cmd
}

func (a *app) combine(out string, opts combineOptions) (outcome, error) {
	res := outcome{Workspace: filepath.Dir(out)}

	var grids []*raster.Grid
	var desc raster.Desc
	for i, in := range opts.Inputs {
		g, d, err := a.files.ReadGrid(in)
		if err != nil {
			return res, err
		}
		if opts.Crop > 0 {
			s, cd, err := raster.Crop(&raster.Stack{Frames: 1, Rows: g.Rows, Cols: g.Cols, Data: g.Data}, d, opts.Crop)
			if err != nil {
				return res, fmt.Errorf("%s: %w", in, err)
			}
			g, d = s.FrameGrid(0), cd
		}
		if i == 0 {
			desc = d
		}
		grids = append(grids, g)
	}

	codes, table, err := raster.Combine(grids, opts.NoData)
	if err != nil {
		return res, err
	}
	logger.Info("%d distinct combination(s) across %d raster(s)", len(table), len(grids))

	written, err := a.files.WriteGrid(out, codes, desc, raster.WriteOptions{
		DataType:  raster.CombineDataType(len(table)),
		NoData:    raster.NoData(raster.CombineNoData),
		Overwrite: opts.Overwrite,
	})
	if err != nil {
		return res, err
	}
	if !written {
		res.Skipped = true
		res.Message = "output exists"
		return res, nil
	}
	res.Outputs++

	tablePath := strings.TrimSuffix(out, filepath.Ext(out)) + ".csv"
	if err := a.writeCombinations(tablePath, opts.Inputs, table); err != nil {
		return res, err
	}
	res.Outputs++
	return res, nil
}

func (a *app) writeCombinations(path string, inputs []string, table []raster.Combination) error {
	f, err := a.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := csv.NewWriter(f)

	header := []string{"Code"}
	for _, in := range inputs {
		header = append(header, strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)))
	}
	records := [][]string{header}
	for _, c := range table {
		rec := []string{strconv.Itoa(c.Code)}
		for _, v := range c.Values {
			rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
		}
		records = append(records, rec)
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
