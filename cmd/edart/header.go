package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/usfs-r5/edart/internal/envi"
)

func (a *app) headerCommand() *cobra.Command {
	var band string

	cmd := &cobra.Command{
		Use:   "header <raster>",
		Short: "Print the ENVI header of a raster and its derived geometry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := envi.ReadHeader(a.fs, args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "header\t%s\n", h.Path)
			if h.HasMapInfo {
				fmt.Fprintf(w, "xmin, ymax\t%v, %v\n", h.XMin, h.YMax)
				fmt.Fprintf(w, "xmax, ymin\t%v, %v\n", h.XMax, h.YMin)
				fmt.Fprintf(w, "cell size\t%v x %v\n", h.CellSizeX, h.CellSizeY)
			} else {
				fmt.Fprintf(w, "map info\tmissing\n")
			}
			fmt.Fprintf(w, "lines x samples\t%d x %d\n", h.Lines, h.Samples)

			if band != "" {
				name, err := h.BandNameWild(band)
				if err != nil {
					return err
				}
				idx, _ := h.BandIndex(name)
				fmt.Fprintf(w, "band %q\t%s (index %d)\n", band, name, idx)
			}

			fmt.Fprintln(w)
			keys := h.Keys()
			sort.Strings(keys)
			for _, k := range keys {
				v, _ := h.Value(k)
				fmt.Fprintf(w, "%s\t%s\n", k, v)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&band, "band", "", "Resolve the unique band whose name contains this text")
	return cmd
}
