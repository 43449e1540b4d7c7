package main

import (
	"math"
	"strconv"
	"strings"

	"github.com/Sterniko/music/utils"
)

// lossPlot draws a crude vertical bar chart of the epoch losses, scaled so
// the worst finite epoch fills the full height.
func lossPlot(losses []float64) string {
	const height = 10 // number of text rows
	n := len(losses)
	if n == 0 {
		return "no data to plot"
	}

	hi := 0.0
	for _, v := range losses {
		if utils.IsFinite(v) {
			hi = math.Max(hi, v)
		}
	}
	values := make([]float64, n)
	for i, v := range losses {
		switch {
		case !utils.IsFinite(v):
			values[i] = 1
		case hi > 0:
			values[i] = v / hi
		}
	}

	var b strings.Builder
	for row := height; row >= 1; row-- {
		threshold := float64(row) / float64(height)
		for _, v := range values {
			if v >= threshold {
				b.WriteString("█")
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	// x-axis, epoch digit every 5 columns
	b.WriteString(strings.Repeat("─", n))
	b.WriteByte('\n')
	for i := range values {
		if i%5 == 0 {
			b.WriteString(strconv.Itoa(i % 10))
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
