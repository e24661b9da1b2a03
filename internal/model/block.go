package model

import "github.com/twpayne/go-geom"

// BlockPolygon is one census block read from the block dataset.
type BlockPolygon struct {
	StateFP  string
	CountyFP string
	TractCE  string
	BlockCE  string

	// Geometry is in the geographic reference of the block dataset.
	Geometry *geom.MultiPolygon

	// TotalArea is measured in square meters of the equal-area projection.
	// It is zero until the spatial filter computes it.
	TotalArea float64
}

// GEOID returns the block's canonical identifier.
func (b BlockPolygon) GEOID() string {
	return BlockGEOID(b.StateFP, b.CountyFP, b.TractCE, b.BlockCE)
}

// TractGEOID returns the identifier of the tract containing the block.
func (b BlockPolygon) TractGEOID() string {
	return TractGEOID(b.StateFP, b.CountyFP, b.TractCE)
}

// PNPolygon is the Promise Neighborhood boundary, merged into one
// multipolygon in the block dataset's geographic reference.
type PNPolygon struct {
	Geometry *geom.MultiPolygon
}

// IntersectedBlock is a block that overlaps the PN, with the overlapping
// area summed over every intersection piece.
type IntersectedBlock struct {
	Block    BlockPolygon
	AreaInPN float64
}

// Ratio returns AreaInPN / TotalArea. Callers must not ask for the ratio of
// a zero-area block; the spatial filter rejects those first.
func (ib IntersectedBlock) Ratio() float64 {
	return ib.AreaInPN / ib.Block.TotalArea
}

// GEOID returns the underlying block's identifier.
func (ib IntersectedBlock) GEOID() string {
	return ib.Block.GEOID()
}
