// Package report writes the summary and profile text files
// original_source/src/main.c produces after a run, in the exact key
// order and format the original ecall-hosted driver pins down.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/Lavezza99/risc32sim/pkg/predict"
)

// WriteSummary writes the host-tick instruction-rate line, e.g.
// "Simulated 4 instructions in 123456 host ticks (0.032400 MIPS)",
// the line original_source/src/main.c prints unconditionally and the
// -s flag redirects to a file instead of stdout.
func WriteSummary(w io.Writer, retired uint64, elapsed time.Duration) error {
	ticks := elapsed.Nanoseconds()
	var mips float64
	if ticks > 0 {
		mips = float64(retired) / elapsed.Seconds() / 1e6
	}
	_, err := fmt.Fprintf(w, "\nSimulated %d instructions in %d host ticks (%f MIPS)\n",
		retired, ticks, mips)
	return err
}

// WriteProfile writes the branch-predictor profile in the key-per-line
// format original_source/src/main.c produces, in the same order, with
// the misprediction rate and MPKI lines present only when their
// denominators are nonzero.
func WriteProfile(w io.Writer, predictorName string, size int, sized bool, retired uint64, stats predict.Stats) error {
	if _, err := fmt.Fprintf(w, "Predictor: %s\n", predictorName); err != nil {
		return err
	}
	if sized {
		if _, err := fmt.Fprintf(w, "Size: %d\n", size); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Instructions: %d\n", retired); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Total branches: %d\n", stats.TotalBranches); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Mispredictions: %d\n", stats.Mispredictions); err != nil {
		return err
	}
	if stats.TotalBranches > 0 {
		rate := 100.0 * float64(stats.Mispredictions) / float64(stats.TotalBranches)
		if _, err := fmt.Fprintf(w, "Misprediction rate: %.2f%%\n", rate); err != nil {
			return err
		}
	}
	if retired > 0 {
		mpki := 1000.0 * float64(stats.Mispredictions) / float64(retired)
		if _, err := fmt.Fprintf(w, "MPKI: %.3f\n", mpki); err != nil {
			return err
		}
	}
	return nil
}
