package model

// Under18 is the name of the derived under-18 count on every record.
const Under18 = "Under18"

// DemographicRecord is one block row of a census table after renaming and
// numeric coercion.
type DemographicRecord struct {
	State  string
	County string
	Tract  string
	Block  string

	// Counts holds every renamed numeric column plus the derived Under18.
	Counts map[string]int64
}

// Count returns the named count and whether the record carries it.
func (r DemographicRecord) Count(field string) (int64, bool) {
	v, ok := r.Counts[field]
	return v, ok
}

// GEOID returns the record's canonical block identifier.
func (r DemographicRecord) GEOID() string {
	return BlockGEOID(r.State, r.County, r.Tract, r.Block)
}

// TractGEOID returns the identifier of the record's tract.
func (r DemographicRecord) TractGEOID() string {
	return TractGEOID(r.State, r.County, r.Tract)
}

// FlaggedRecord is a demographic record marked as inside or outside the PN.
type FlaggedRecord struct {
	DemographicRecord
	ID   string
	InPN bool
}

// JoinReport accounts for the records the joiner did not carry forward and
// the PN blocks it could not match.
type JoinReport struct {
	Records         int      `json:"records"`
	Kept            int      `json:"kept"`
	InPN            int      `json:"in_pn"`
	ExcludedRecords int      `json:"excluded_records"`
	ExcludedTracts  int      `json:"excluded_tracts"`
	PNTracts        []string `json:"pn_tracts"`
	UnmatchedBlocks []string `json:"unmatched_blocks,omitempty"`
}
