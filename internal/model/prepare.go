package model

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// DroppedVars are removed before fitting.
var DroppedVars = []string{"emi_to_income_ratio", "dpd_count_30_plus"}

const jitterScale = 0.01

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Prepare standardises dpd_max, drops DroppedVars and replaces dpd_max by
// dpd_max_adj, a copy with uniform noise in [0, 0.01) that breaks
// quasi-separation. The input frame is not modified.
func Prepare(in *frame.Frame, seed uint64) *frame.Frame {
	f := in.Select(in.Names()...)
	f.Drop(DroppedVars...)
	rng := newRand(seed)

	if x, ok := f.Num("dpd_max"); ok {
		mean, sd := stats.Mean(x), stats.PopStd(x)
		adj := make([]float64, len(x))
		for i, v := range x {
			z := v - mean
			if sd > 0 {
				z /= sd
			}
			adj[i] = z + rng.Float64()*jitterScale
		}
		f.Drop("dpd_max")
		f.SetNum("dpd_max_adj", adj)
	} else if !f.Has("dpd_max_adj") {
		adj := make([]float64, f.Rows())
		for i := range adj {
			adj[i] = rng.Float64() * jitterScale
		}
		f.SetNum("dpd_max_adj", adj)
	}
	return f
}

// Split partitions the rows into training and validation sets, stratified
// on the target when it is present. Each class contributes
// round(testSize·n) rows to validation. Row order is preserved.
func Split(f *frame.Frame, target string, testSize float64, seed uint64) (train, valid *frame.Frame) {
	rng := newRand(seed)
	groups := map[string][]int{}
	var keys []string
	y, stratified := f.Num(target)
	for i := 0; i < f.Rows(); i++ {
		key := ""
		if stratified {
			key = frame.FormatFloat(y[i])
		}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], i)
	}
	sort.Strings(keys)

	var trainIdx, validIdx []int
	for _, k := range keys {
		idx := groups[k]
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		nTest := int(math.Round(testSize * float64(len(idx))))
		validIdx = append(validIdx, idx[:nTest]...)
		trainIdx = append(trainIdx, idx[nTest:]...)
	}
	sort.Ints(trainIdx)
	sort.Ints(validIdx)
	return f.Take(trainIdx), f.Take(validIdx)
}
