package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lavezza99/risc32sim/pkg/predict"
)

func TestWriteSummaryFormat(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSummary(&buf, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, "\nSimulated 4 instructions in 0 host ticks (0.000000 MIPS)\n", buf.String())
}

func TestWriteSummaryComputesMIPS(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSummary(&buf, 2_000_000, time.Second)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Simulated 2000000 instructions")
	assert.Contains(t, buf.String(), "2.000000 MIPS")
}

func TestWriteProfileOmitsRatesWhenDenominatorsAreZero(t *testing.T) {
	var buf bytes.Buffer
	err := WriteProfile(&buf, "nt", 0, false, 0, predict.Stats{})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Predictor: nt\n")
	assert.NotContains(t, out, "Size:")
	assert.NotContains(t, out, "Misprediction rate:")
	assert.NotContains(t, out, "MPKI:")
}

func TestWriteProfileIncludesRatesAndSize(t *testing.T) {
	var buf bytes.Buffer
	stats := predict.Stats{TotalBranches: 100, Mispredictions: 10}
	err := WriteProfile(&buf, "bimodal", 256, true, 1000, stats)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Predictor: bimodal\n")
	assert.Contains(t, out, "Size: 256\n")
	assert.Contains(t, out, "Instructions: 1000\n")
	assert.Contains(t, out, "Total branches: 100\n")
	assert.Contains(t, out, "Mispredictions: 10\n")
	assert.Contains(t, out, "Misprediction rate: 10.00%\n")
	assert.Contains(t, out, "MPKI: 10.000\n")
}
