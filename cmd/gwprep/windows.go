package main

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kristyvitulova/Publication/dsp/window"
)

func (a *app) windowsCmd() *cobra.Command {
	var (
		size      int
		alpha     float64
		symmetric bool
	)

	cmd := &cobra.Command{
		Use:   "windows [name ...]",
		Short: "Print spectral properties of the Welch taper windows",
		Long: `Print the spectral properties of the taper windows accepted by
psd.window. Without arguments every window is listed; the configured one
is marked with '*'. The noise gain is the power the window removes from
broadband noise and is compensated in the PSD normalization.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.setup(cmd, false)
			if err != nil {
				return err
			}

			types := window.Types()
			if len(args) > 0 {
				types = nil
				for _, name := range args {
					t, err := window.Parse(name)
					if err != nil {
						return err
					}
					types = append(types, t)
				}
			}

			var opts []window.Option
			if !symmetric {
				opts = append(opts, window.WithPeriodic())
			}
			return printWindows(cmd.OutOrStdout(), types, size, alpha, cfg.PSD.Window, opts)
		},
	}

	cmd.Flags().IntVar(&size, "size", 4096, "window length in samples")
	cmd.Flags().Float64Var(&alpha, "alpha", math.NaN(), "shape parameter for tukey and kaiser")
	cmd.Flags().BoolVar(&symmetric, "symmetric", false, "use the symmetric form instead of the periodic FFT form")
	return cmd
}

func printWindows(w io.Writer, types []window.Type, size int, alpha float64, configured string, baseOpts []window.Option) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Window\tSize\tCoherent Gain\tNoise Gain\tENBW [bins]\tBW 3dB [bins]\tScallop [dB]\n")
	fmt.Fprintf(tw, "------\t----\t-------------\t----------\t-----------\t-------------\t------------\n")

	for _, t := range types {
		info := window.Info(t)
		opts := append([]window.Option(nil), baseOpts...)
		label := info.Name
		if info.HasAlpha {
			a := info.DefAlpha
			if !math.IsNaN(alpha) {
				a = alpha
			}
			opts = append(opts, window.WithAlpha(a))
			label = fmt.Sprintf("%s (a=%.2f)", info.Name, a)
		}
		if strings.EqualFold(info.Name, strings.TrimSpace(configured)) {
			label = "*" + label
		}

		an := window.Analyze(window.Generate(t, size, opts...))
		fmt.Fprintf(tw, "%s\t%d\t%.6f\t%.6f\t%.4f\t%.4f\t%.4f\n",
			label, size, an.CoherentGain, an.NoiseGain, an.ENBW, an.Bandwidth3dB, an.ScallopLossdB)
	}
	return tw.Flush()
}
