package planner

import (
	"math"

	"mbify/internal/model"
)

// Allocation is the result of distributing an aggregate byte budget across
// scene segments.
type Allocation struct {
	Shares []int64 // bytes per segment, in input order

	// ExceedsTarget is set when every segment is floor-bound: the sum of
	// shares is then larger than the requested aggregate. Reported, never
	// silently absorbed.
	ExceedsTarget bool
	TotalBytes    int64
}

// AllocateScenes splits targetBytes across segments proportionally to their
// durations, then water-fills: any segment whose proportional share would
// push its bitrate under the floor is raised to the floor-implied size and
// removed from the distribution set, and the shrunken remainder is
// redistributed among the rest. Each iteration binds at least one segment,
// so the loop runs at most len(durations) times.
//
// After the fixed point, the rounding remainder is folded into the last
// still-eligible segment so shares sum exactly to targetBytes (unless all
// segments are floor-bound, in which case the total exceeds the target and
// ExceedsTarget is set).
func AllocateScenes(targetBytes int64, durations []float64, audioBps int, overheadFraction float64, floorBps int) (Allocation, error) {
	n := len(durations)
	shares := make([]int64, n)
	minBytes := make([]int64, n)
	for i, d := range durations {
		if d <= 0 {
			return Allocation{}, &model.InvalidTrimWindowError{
				Duration: d,
				Reason:   "scene has non-positive duration",
			}
		}
		minBytes[i] = FloorBytes(d, audioBps, overheadFraction, floorBps)
	}

	bound := make([]bool, n)
	for iter := 0; iter < n; iter++ {
		var boundTotal int64
		var eligibleDur float64
		for i := range durations {
			if bound[i] {
				boundTotal += minBytes[i]
			} else {
				eligibleDur += durations[i]
			}
		}
		remaining := targetBytes - boundTotal

		changed := false
		for i := range durations {
			if bound[i] {
				continue
			}
			share := float64(remaining) * durations[i] / eligibleDur
			if share < float64(minBytes[i]) {
				bound[i] = true
				changed = true
			}
		}
		if !changed {
			// Fixed point: write out floors of the proportional shares and
			// give the rounding remainder to the last eligible segment.
			var sum int64
			last := -1
			for i := range durations {
				if bound[i] {
					shares[i] = minBytes[i]
					continue
				}
				shares[i] = int64(math.Floor(float64(remaining) * durations[i] / eligibleDur))
				sum += shares[i]
				last = i
			}
			if last >= 0 {
				shares[last] += remaining - sum
			}
			break
		}
	}

	alloc := Allocation{Shares: shares}
	allBound := true
	for i := range durations {
		if !bound[i] {
			allBound = false
		}
		if shares[i] == 0 { // every segment ended bound before a fixed-point pass ran
			shares[i] = minBytes[i]
		}
		alloc.TotalBytes += shares[i]
	}
	if allBound && alloc.TotalBytes > targetBytes {
		alloc.ExceedsTarget = true
	}
	return alloc, nil
}
