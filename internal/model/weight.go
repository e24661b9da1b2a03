package model

import (
	"math"
	"time"
)

// Ratio divides two counts. A zero denominator yields NaN, which the output
// sinks render as an undefined value rather than zero.
func Ratio(num, den int64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return float64(num) / float64(den)
}

// TractWeight is one output row: the share of a tract's counts that fall
// inside the PN.
type TractWeight struct {
	State  string
	County string
	Tract  string

	Total       int64
	TotalInPN   int64
	Under18     int64
	Under18InPN int64

	Weight        float64
	Under18Weight float64
}

// Defined reports whether Weight has a non-zero denominator.
func (w TractWeight) Defined() bool { return !math.IsNaN(w.Weight) }

// Under18Defined reports whether Under18Weight has a non-zero denominator.
func (w TractWeight) Under18Defined() bool { return !math.IsNaN(w.Under18Weight) }

// WeightTable is the weight output of one run. Label names the primary count,
// e.g. "TotalPopulation" or "Households".
type WeightTable struct {
	Label string
	Rows  []TractWeight
}

// WeightColumn returns the name of the primary weight column.
func (t WeightTable) WeightColumn() string { return t.Label + "Weight" }

// Under18Column returns the name of the under-18 weight column.
func (t WeightTable) Under18Column() string { return t.Label + "Under18Weight" }

// Header returns the output column names in order.
func (t WeightTable) Header() []string {
	return []string{"State", "County", "Tract", t.WeightColumn(), t.Under18Column()}
}

// RunResult carries everything a run produced to the output sinks.
type RunResult struct {
	RunID        string
	Jurisdiction Jurisdiction
	Profile      string
	StartedAt    time.Time

	// Threshold and AreaCRS record the spatial filter settings.
	Threshold float64
	AreaCRS   string
	// SRID is the EPSG code of the block geometries, 0 when unknown.
	SRID int

	Blocks []IntersectedBlock
	Join   JoinReport
	Table  WeightTable
}
