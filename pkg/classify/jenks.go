package classify

import "math"

// naturalBreaks returns k+1 boundaries minimizing the total within-class sum
// of squared deviations.
//
// The optimization runs over the distinct values weighted by their
// multiplicity, so equal values always land in the same class and every
// boundary is a data value: the lower bound of each class is its smallest
// member. When the maximum forms a class of its own the last two boundaries
// are equal, giving the closed bin [max, max].
//
// This is the O(n²k) dynamic program of Jenks/Fisher; with n in the
// hundreds it is instant.
func naturalBreaks(distinct, sorted []float64, k int) []float64 {
	n := len(distinct)
	weight := make([]float64, n)
	j := 0
	for _, v := range sorted {
		for distinct[j] != v {
			j++
		}
		weight[j]++
	}

	// Prefix sums of w, w*x and w*x² give any segment's SSD in O(1).
	sw := make([]float64, n+1)
	swx := make([]float64, n+1)
	swxx := make([]float64, n+1)
	for i, x := range distinct {
		w := weight[i]
		sw[i+1] = sw[i] + w
		swx[i+1] = swx[i] + w*x
		swxx[i+1] = swxx[i] + w*x*x
	}
	ssd := func(lo, hi int) float64 { // segment distinct[lo..hi], inclusive
		w := sw[hi+1] - sw[lo]
		s := swx[hi+1] - swx[lo]
		return (swxx[hi+1] - swxx[lo]) - s*s/w
	}

	// cost[c][i]: best SSD splitting distinct[0..i] into c+1 classes.
	// start[c][i]: first index of the last class in that split.
	cost := make([][]float64, k)
	start := make([][]int, k)
	for c := range k {
		cost[c] = make([]float64, n)
		start[c] = make([]int, n)
		for i := range n {
			cost[c][i] = math.Inf(1)
		}
	}
	for i := range n {
		cost[0][i] = ssd(0, i)
	}
	for c := 1; c < k; c++ {
		for i := c; i < n; i++ {
			for s := c; s <= i; s++ {
				v := cost[c-1][s-1] + ssd(s, i)
				if v < cost[c][i] {
					cost[c][i] = v
					start[c][i] = s
				}
			}
		}
	}

	breaks := make([]float64, k+1)
	breaks[k] = distinct[n-1]
	end := n - 1
	for c := k - 1; c >= 1; c-- {
		s := start[c][end]
		breaks[c] = distinct[s]
		end = s - 1
	}
	breaks[0] = distinct[0]
	return breaks
}
