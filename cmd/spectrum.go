// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"strconv"

	"github.com/sonyaz93/Divaparadise-ai/pkg/core"
	"github.com/spf13/cobra"
)

func newSpectrumCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "spectrum [byte...]",
		Short: "Reduce literal frequency bytes (0-255) into spectrum bars",
		Example: `  diva-engine spectrum --bars 2 0 255 255 0
  diva-engine spectrum -b 4 $(seq 0 8 255)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			freqData := make([]uint8, len(args))
			for i, arg := range args {
				v, err := strconv.ParseUint(arg, 0, 8)
				if err != nil {
					return fmt.Errorf("invalid frequency byte %q: %w", arg, err)
				}
				freqData[i] = uint8(v)
			}

			bars, err := core.CalculateSpectrum(freqData, opts.cfg.Engine.NumBars)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatBars(bars))
			return nil
		},
	}
}
