package metadata

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/testutil"
)

func metaFrame() *frame.Frame {
	nan := math.NaN()
	return frame.MustFromColumns(
		frame.StringColumn("cust_id", []string{"C1", "C2", "C3", "C4"}),
		frame.NumericColumn("bureau_score", []float64{650, 700, nan, 720}),
		frame.NumericColumn("bureau_score_low_flag", []float64{1, 0, nan, 0}),
		frame.NumericColumn("risk_flag", []float64{1, 0, nan, 0}),
		frame.NumericColumn("dpd_m1", []float64{1, 0, nan, 0}),
		frame.NumericColumn("sparse", []float64{nan, nan, 3, nan}),
		frame.StringColumn("gender", []string{"M", "F", "M", ""}),
	)
}

func TestSummaries(t *testing.T) {
	s := Summaries(metaFrame())
	require.Len(t, s, 5)
	assert.Equal(t, VarSummary{Variable: "bureau_score", N: 3, NMiss: 1, PctMissing: 25}, s[0])
	assert.Equal(t, 75.0, s[4].PctMissing)

	high := HighMissing(s, 30)
	require.Len(t, high, 1)
	assert.Equal(t, "sparse", high[0].Variable)

	sf := SummaryFrame(s)
	assert.Equal(t, 6, sf.Rows())
	assert.Equal(t, "TOTAL", sf.Row(5)[0])
}

func TestFrequenciesIncludeMissing(t *testing.T) {
	ft := Frequencies(metaFrame(), "gender")
	assert.Equal(t, []string{"M", MissingLabel, "F"}, ft.Values)
	assert.Equal(t, []int{2, 1, 1}, ft.Counts)
	assert.Equal(t, []string{"gender", "Count", "Frequency"}, ft.Frame().Names())

	absent := Frequencies(metaFrame(), "residence_type")
	assert.Empty(t, absent.Values)
	assert.Equal(t, 0, absent.Frame().Rows())
}

func TestDescribe(t *testing.T) {
	d := Describe(metaFrame(), []string{"bureau_score", "monthly_income"})
	require.Len(t, d, 1)
	assert.Equal(t, 3, d[0].N)
	assert.Equal(t, 690.0, d[0].Mean)
	assert.Equal(t, 650.0, d[0].Min)
	assert.Equal(t, 720.0, d[0].Max)
}

func TestDuplicateColumnsKeepFirst(t *testing.T) {
	opt := DefaultOptions()
	opt.Workers = 2
	dups, err := DuplicateColumns(testutil.Context(t), metaFrame(), opt)
	require.NoError(t, err)
	require.Len(t, dups, 2)
	assert.Equal(t, []Duplicate{
		{Group: dups[0].Group, Column: "bureau_score_low_flag"},
		{Group: dups[0].Group, Column: "risk_flag"},
	}, dups)
	assert.Equal(t, []string{"risk_flag"}, DropList(dups))
}

func TestSampleRowsIsSeeded(t *testing.T) {
	a := sampleRows(100, 10, 42)
	b := sampleRows(100, 10, 42)
	assert.Equal(t, a, b)
	assert.Len(t, a, 10)
	assert.True(t, sort.IntsAreSorted(a))
	assert.Len(t, sampleRows(5, 10, 42), 5)
}

func TestCompareLegacy(t *testing.T) {
	c := CompareLegacy([]string{"risk_flag", "dpd_ratio"})
	assert.Equal(t, []string{"dpd_ratio"}, c.Both)
	assert.Equal(t, []string{"risk_flag"}, c.DetectedOnly)
	assert.Len(t, c.LegacyOnly, len(LegacyDropList)-1)
	assert.Len(t, LegacyDropList, 58)
}

func TestRun(t *testing.T) {
	master := frame.MustFromColumns(frame.StringColumn("cust_id", []string{"C1", "C2"}))
	res, err := Run(testutil.Context(t), metaFrame(), master, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"risk_flag"}, res.Dropped)
	assert.False(t, res.Output.Has("risk_flag"))
	assert.True(t, res.Output.Has("dpd_m1"))
	assert.Equal(t, 2, res.Orphans.Rows())

	dict := res.Dictionary
	assert.Equal(t, 7, dict.Rows())
	vars, _ := dict.Str("Variable")
	dropped, _ := dict.Str("Is_Dropped")
	kinds, _ := dict.Str("Data_Type")
	unique, _ := dict.Num("Unique_Values")
	for i, v := range vars {
		switch v {
		case "risk_flag":
			assert.Equal(t, "Yes", dropped[i])
		case "gender":
			assert.Equal(t, "Categorical", kinds[i])
			assert.Equal(t, 2.0, unique[i])
		case "bureau_score":
			assert.Equal(t, "No", dropped[i])
			assert.True(t, math.IsNaN(unique[i]))
		}
	}
}

func TestOrphansWithoutMaster(t *testing.T) {
	f := metaFrame()
	assert.Equal(t, 0, Orphans(f, nil, "cust_id").Rows())
	assert.Equal(t, f.Width(), Orphans(f, nil, "cust_id").Width())
	master := frame.MustFromColumns(frame.StringColumn("other", []string{"x"}))
	assert.Equal(t, 0, Orphans(f, master, "cust_id").Rows())
}
