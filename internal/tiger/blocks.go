package tiger

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pn-weights/internal/layer"
	"github.com/sells-group/pn-weights/internal/model"
)

// Identifier fields, before the vintage suffix.
const (
	fieldState  = "STATEFP"
	fieldCounty = "COUNTYFP"
	fieldTract  = "TRACTCE"
	fieldBlock  = "BLOCKCE"
)

// Blocks decodes block identifiers from a TIGER/Line block layer. Suffixed
// names (TRACTCE20) are tried first, then plain ones (TRACTCE). A feature
// missing any identifier is a geometry error.
func Blocks(l *layer.Layer, p Product) ([]model.BlockPolygon, error) {
	blocks := make([]model.BlockPolygon, 0, len(l.Features))
	for i, f := range l.Features {
		var ids [4]string
		for j, base := range []string{fieldState, fieldCounty, fieldTract, fieldBlock} {
			v, ok := f.Attr(p.Field(base))
			if !ok || v == "" {
				v, ok = f.Attr(base)
			}
			if !ok || v == "" {
				return nil, eris.Wrapf(model.ErrGeometry, "tiger: feature %d of %s has no %s", i, l.Path, p.Field(base))
			}
			ids[j] = v
		}
		blocks = append(blocks, model.BlockPolygon{
			StateFP:  ids[0],
			CountyFP: ids[1],
			TractCE:  ids[2],
			BlockCE:  ids[3],
			Geometry: f.Geometry,
		})
	}

	zap.L().Debug("tiger: decoded blocks",
		zap.String("path", l.Path),
		zap.Int("year", p.Year),
		zap.Int("blocks", len(blocks)),
	)
	return blocks, nil
}
