package IO

import (
	"slices"
	"strconv"
	"strings"
)

// default spelling of the twelve pitch classes
var pitchNames = [12]string{"C", "C#", "D", "E-", "E", "F", "F#", "G", "G#", "A", "B-", "B"}

// PitchName renders a MIDI key as name + accidental + octave, with middle C
// (60) as C4.
func PitchName(key uint8) string {
	octave := int(key)/12 - 1
	return pitchNames[key%12] + strconv.Itoa(octave)
}

// NormalOrder returns the distinct pitch classes of keys in normal order: the
// rotation with the smallest span, ties broken by the rotation packed most
// tightly to the left, then by the lowest starting pitch class.
func NormalOrder(keys []uint8) []int {
	var seen [12]bool
	var pcs []int
	for _, k := range keys {
		pc := int(k % 12)
		if !seen[pc] {
			seen[pc] = true
			pcs = append(pcs, pc)
		}
	}
	slices.Sort(pcs)
	n := len(pcs)
	if n <= 1 {
		return pcs
	}

	rotation := func(start int) []int {
		r := make([]int, n)
		for i := 0; i < n; i++ {
			r[i] = pcs[(start+i)%n]
		}
		return r
	}
	// distance from the first element to element i, mod 12
	dist := func(r []int, i int) int {
		return ((r[i]-r[0])%12 + 12) % 12
	}

	best := rotation(0)
	for s := 1; s < n; s++ {
		cand := rotation(s)
		if betterNormal(cand, best, dist) {
			best = cand
		}
	}
	return best
}

func betterNormal(a, b []int, dist func([]int, int) int) bool {
	n := len(a)
	for i := n - 1; i >= 1; i-- {
		da, db := dist(a, i), dist(b, i)
		if da != db {
			return da < db
		}
	}
	return a[0] < b[0]
}

// ChordSymbol joins the normal order of keys with dots, e.g. "0.4.7".
func ChordSymbol(keys []uint8) string {
	order := NormalOrder(keys)
	parts := make([]string, len(order))
	for i, pc := range order {
		parts[i] = strconv.Itoa(pc)
	}
	return strings.Join(parts, ".")
}
