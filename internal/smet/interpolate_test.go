package smet

import (
	"fmt"
	"slices"
	"strconv"
	"testing"
)

func format2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatAll(vals []float64) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = format2(v)
	}
	return out
}

func nodataRun(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = NoData
	}
	return out
}

func TestFillGaps(t *testing.T) {
	tests := []struct {
		name   string
		in     []float64
		want   []string
		filled int
	}{
		{
			name:   "interior run of two",
			in:     []float64{10, NoData, NoData, 20},
			want:   []string{"10.00", "13.33", "16.67", "20.00"},
			filled: 2,
		},
		{
			name:   "single sample",
			in:     []float64{0, NoData, 100},
			want:   []string{"0.00", "50.00", "100.00"},
			filled: 1,
		},
		{
			name:   "run of six is filled",
			in:     slices.Concat([]float64{0}, nodataRun(6), []float64{70}),
			want:   []string{"0.00", "10.00", "20.00", "30.00", "40.00", "50.00", "60.00", "70.00"},
			filled: 6,
		},
		{
			name:   "run of seven is kept",
			in:     slices.Concat([]float64{0}, nodataRun(7), []float64{80}),
			want:   slices.Concat([]string{"0.00"}, formatAll(nodataRun(7)), []string{"80.00"}),
			filled: 0,
		},
		{
			name:   "leading run is kept",
			in:     []float64{NoData, NoData, 5, 6},
			want:   []string{"-999.00", "-999.00", "5.00", "6.00"},
			filled: 0,
		},
		{
			name:   "trailing run is kept",
			in:     []float64{5, 6, NoData},
			want:   []string{"5.00", "6.00", "-999.00"},
			filled: 0,
		},
		{
			name:   "all missing",
			in:     nodataRun(3),
			want:   formatAll(nodataRun(3)),
			filled: 0,
		},
		{
			name:   "several runs",
			in:     []float64{1, NoData, 3, NoData, NoData, 6},
			want:   []string{"1.00", "2.00", "3.00", "4.00", "5.00", "6.00"},
			filled: 3,
		},
		{
			name:   "empty",
			in:     nil,
			want:   []string{},
			filled: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vals := slices.Clone(tt.in)
			filled := FillGaps(vals, MaxInterpolatedGap)
			if filled != tt.filled {
				t.Errorf("filled = %d, want %d", filled, tt.filled)
			}
			if got := formatAll(vals); !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFillGapsIdempotent(t *testing.T) {
	inputs := [][]float64{
		{10, NoData, NoData, 20},
		slices.Concat([]float64{NoData, 1}, nodataRun(7), []float64{2, NoData, 3, NoData}),
	}
	for i, in := range inputs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			once := slices.Clone(in)
			FillGaps(once, MaxInterpolatedGap)

			twice := slices.Clone(once)
			if n := FillGaps(twice, MaxInterpolatedGap); n != 0 {
				t.Fatalf("second pass filled %d samples", n)
			}
			if !slices.Equal(once, twice) {
				t.Fatalf("second pass changed values: %v -> %v", once, twice)
			}
		})
	}
}
