package smet

// MaxInterpolatedGap is the longest run of NoData samples that gets filled.
// Longer runs are real outages and stay missing.
const MaxInterpolatedGap = 6

// FillGaps linearly interpolates interior runs of NoData no longer than
// maxGap samples. Runs touching either end of vals are left alone. It edits
// vals in place and returns the number of samples filled.
func FillGaps(vals []float64, maxGap int) int {
	filled := 0
	n := len(vals)

	for i := 0; i < n; {
		if vals[i] != NoData {
			i++
			continue
		}

		start := i
		for i < n && vals[i] == NoData {
			i++
		}
		end := i

		gap := end - start
		if gap > maxGap || start == 0 || end == n {
			continue
		}

		before, after := vals[start-1], vals[end]
		step := (after - before) / float64(gap+1)
		for j := start; j < end; j++ {
			vals[j] = before + step*float64(j-start+1)
		}
		filled += gap
	}

	return filled
}
