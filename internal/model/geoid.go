package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Widths of the GEOID components of a 2020 census block.
const (
	StateWidth  = 2
	CountyWidth = 3
	TractWidth  = 6
	BlockWidth  = 4
)

// ZeroPad left-pads s with zeros to width. Longer values are returned as is.
func ZeroPad(s string, width int) string {
	s = strings.TrimSpace(s)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// TractGEOID returns the 11-character tract identifier.
func TractGEOID(state, county, tract string) string {
	return ZeroPad(state, StateWidth) + ZeroPad(county, CountyWidth) + ZeroPad(tract, TractWidth)
}

// BlockGEOID returns the 15-character block identifier. The components are
// concatenated as strings so leading zeros survive.
func BlockGEOID(state, county, tract, block string) string {
	return TractGEOID(state, county, tract) + ZeroPad(block, BlockWidth)
}

// Jurisdiction is the state and county a run is restricted to.
type Jurisdiction struct {
	State  string `json:"state"`
	County string `json:"county"`
}

// Validate checks that both codes are numeric FIPS codes of the right width
// once padded.
func (j Jurisdiction) Validate() error {
	if err := checkFIPS(j.State, StateWidth); err != nil {
		return eris.Wrap(err, "jurisdiction: state")
	}
	if err := checkFIPS(j.County, CountyWidth); err != nil {
		return eris.Wrap(err, "jurisdiction: county")
	}
	return nil
}

// Normalized returns the jurisdiction with zero-padded codes.
func (j Jurisdiction) Normalized() Jurisdiction {
	return Jurisdiction{
		State:  ZeroPad(j.State, StateWidth),
		County: ZeroPad(j.County, CountyWidth),
	}
}

// Contains reports whether the given state/county pair belongs to j.
func (j Jurisdiction) Contains(state, county string) bool {
	n := j.Normalized()
	return ZeroPad(state, StateWidth) == n.State && ZeroPad(county, CountyWidth) == n.County
}

func (j Jurisdiction) String() string {
	n := j.Normalized()
	return n.State + n.County
}

func checkFIPS(code string, width int) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return eris.New("empty FIPS code")
	}
	if len(code) > width {
		return eris.Errorf("FIPS code %q longer than %d digits", code, width)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return eris.Errorf("FIPS code %q is not numeric", code)
		}
	}
	return nil
}
