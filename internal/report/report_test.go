package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

func TestRenderTruncatedFrame(t *testing.T) {
	f := frame.MustFromColumns(
		frame.StringColumn("variable", []string{"bureau_score", "age", "dpd_max"}),
		frame.NumericColumn("IV", []float64{0.41234567891, math.NaN(), 0.02}),
	)
	var buf bytes.Buffer
	Render(&buf, FromFrame("IV summary", f, 2))
	out := buf.String()
	assert.Contains(t, out, "IV summary")
	assert.Contains(t, out, "bureau_score")
	assert.Contains(t, out, "0.4123")
	assert.Contains(t, out, "(2 of 3 rows)")
	assert.NotContains(t, out, "dpd_max")
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, Table{Title: "VIF"})
	assert.True(t, strings.HasSuffix(buf.String(), "(0 rows)\n"))
}

func TestChartsWritePNG(t *testing.T) {
	dir := t.TempDir()
	c := stats.ROC([]float64{0.1, 0.4, 0.35, 0.8}, []bool{false, false, true, true})
	roc := filepath.Join(dir, "roc.png")
	require.NoError(t, ROCChart(roc, c, c.AUC(), 0.5))
	info, err := os.Stat(roc)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	iv := filepath.Join(dir, "iv.png")
	require.NoError(t, IVChart(iv, []string{"a", "b"}, []float64{0.3, 0.1}))
	_, err = os.Stat(iv)
	require.NoError(t, err)

	assert.Error(t, IVChart(iv, nil, nil))
}
