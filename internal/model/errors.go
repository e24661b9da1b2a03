package model

import "github.com/rotisserie/eris"

// Error taxonomy shared by every stage. Callers match with eris.Is; concrete
// failures wrap one of these with context, e.g.
// eris.Wrapf(ErrGeometry, "layer: %s: null shape at record %d", path, i).
var (
	// ErrGeometry covers unreadable or invalid geometry and unsupported or
	// unreconcilable coordinate reference systems.
	ErrGeometry = eris.New("geometry error")

	// ErrDataQuality marks input that is well formed but unusable, such as a
	// census block with zero area.
	ErrDataQuality = eris.New("data quality error")

	// ErrDataFormat marks a malformed demographic response: empty table,
	// missing columns or non-numeric counts.
	ErrDataFormat = eris.New("data format error")

	// ErrJoinIntegrity marks demographic records that cannot be attributed to
	// the geometry set of the run.
	ErrJoinIntegrity = eris.New("join integrity error")
)
