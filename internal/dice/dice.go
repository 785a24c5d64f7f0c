// Package dice groups detected pips into individual dice.
package dice

import (
	"github.com/ayusman/dicecount/internal/detector"
)

// DefaultEps is the neighbourhood radius in source pixels that joins the
// pips of one die.
const DefaultEps = 40.0

// Die is one physical die seen in a frame.
type Die struct {
	// PipCount is the number of dots in the die's cluster.
	PipCount int `json:"pip_count"`
	// Centroid is the mean position of the cluster's dots.
	Centroid detector.Point `json:"centroid"`
}

// Grouper partitions the dots of a frame into dice.
// It is stateless between calls; dice are recounted every frame, not tracked.
type Grouper struct {
	eps float64
}

// NewGrouper creates a Grouper joining dots no further than eps apart.
// A non-positive eps selects DefaultEps.
func NewGrouper(eps float64) *Grouper {
	if eps <= 0 {
		eps = DefaultEps
	}
	return &Grouper{eps: eps}
}

// Eps returns the neighbourhood radius.
func (g *Grouper) Eps() float64 {
	return g.eps
}

// Group clusters dots and returns one Die per cluster.
//
// Every dot belongs to exactly one die, so the pip counts always sum to
// len(dots). Dice are ordered by the position of their first dot in the
// input. An empty input yields an empty slice.
func (g *Grouper) Group(dots []detector.Dot) []Die {
	points := make([]detector.Point, len(dots))
	for i, d := range dots {
		points[i] = d.Position
	}

	groups := clusters(points, g.eps)

	dice := make([]Die, 0, len(groups))
	for _, members := range groups {
		dice = append(dice, Die{
			PipCount: len(members),
			Centroid: centroid(points, members),
		})
	}
	return dice
}

// centroid returns the arithmetic mean of the member points.
func centroid(points []detector.Point, members []int) detector.Point {
	var sx, sy float64
	for _, i := range members {
		sx += points[i].X
		sy += points[i].Y
	}
	n := float64(len(members))
	return detector.Point{X: sx / n, Y: sy / n}
}

// PipCounts returns the pip count of each die in order.
func PipCounts(dice []Die) []int {
	counts := make([]int, len(dice))
	for i, d := range dice {
		counts[i] = d.PipCount
	}
	return counts
}
