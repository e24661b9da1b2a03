// Package tiger locates, downloads and decodes Census TIGER/Line block
// shapefiles.
package tiger

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultBaseURL is the Census Bureau TIGER/Line root.
const DefaultBaseURL = "https://www2.census.gov/geo/tiger"

// Product describes a per-state TIGER/Line block shapefile vintage.
type Product struct {
	Year   int
	Dir    string // directory under TIGER{year}/, e.g. "TABBLOCK20"
	Table  string // file stem, e.g. "tabblock20"
	Suffix string // attribute suffix, "20" for STATEFP20
}

// Field returns the vintage-specific attribute name, e.g. TRACTCE20.
func (p Product) Field(base string) string {
	return base + p.Suffix
}

// BlockProduct returns the block product for a TIGER/Line year. 2020 and
// later carry 2020 blocks; 2010 through 2019 carry 2010 blocks.
func BlockProduct(year int) (Product, error) {
	switch {
	case year >= 2020:
		return Product{Year: year, Dir: "TABBLOCK20", Table: "tabblock20", Suffix: "20"}, nil
	case year > 2010:
		return Product{Year: year, Dir: "TABBLOCK", Table: "tabblock10", Suffix: "10"}, nil
	case year == 2010:
		return Product{Year: year, Dir: "TABBLOCK/2010", Table: "tabblock10", Suffix: "10"}, nil
	default:
		return Product{}, eris.Errorf("tiger: no block product for %d", year)
	}
}

// DownloadURL builds the per-state download URL,
// {base}/TIGER{year}/{dir}/tl_{year}_{fips}_{table}.zip.
func DownloadURL(base string, p Product, stateFIPS string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	return fmt.Sprintf("%s/TIGER%d/%s/tl_%d_%s_%s.zip",
		strings.TrimRight(base, "/"), p.Year, p.Dir, p.Year, stateFIPS, p.Table)
}

// FIPSCodes maps state abbreviation to 2-digit FIPS code for all 50 states + DC.
var FIPSCodes = map[string]string{
	"AL": "01", "AK": "02", "AZ": "04", "AR": "05", "CA": "06",
	"CO": "08", "CT": "09", "DE": "10", "DC": "11", "FL": "12",
	"GA": "13", "HI": "15", "ID": "16", "IL": "17", "IN": "18",
	"IA": "19", "KS": "20", "KY": "21", "LA": "22", "ME": "23",
	"MD": "24", "MA": "25", "MI": "26", "MN": "27", "MS": "28",
	"MO": "29", "MT": "30", "NE": "31", "NV": "32", "NH": "33",
	"NJ": "34", "NM": "35", "NY": "36", "NC": "37", "ND": "38",
	"OH": "39", "OK": "40", "OR": "41", "PA": "42", "RI": "44",
	"SC": "45", "SD": "46", "TN": "47", "TX": "48", "UT": "49",
	"VT": "50", "VA": "51", "WA": "53", "WV": "54", "WI": "55",
	"WY": "56", "PR": "72",
}

// StateFIPS resolves a state given as abbreviation ("PA") or FIPS code
// ("42", "9") to its 2-digit code.
func StateFIPS(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if fips, ok := FIPSCodes[s]; ok {
		return fips, true
	}
	if len(s) == 1 {
		s = "0" + s
	}
	for _, fips := range FIPSCodes {
		if fips == s {
			return fips, true
		}
	}
	return "", false
}
