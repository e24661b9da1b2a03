package census

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pn-weights/internal/model"
)

// Parse turns a Census API table into records. The first row is the header.
// Every rename target must be present and hold an integer in every row;
// nothing is coerced to zero. Under18 is derived according to p.Variant.
func Parse(data []byte, p Profile) ([]model.DemographicRecord, error) {
	var raw [][]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(model.ErrDataFormat, "census: decode response: %v", err)
	}
	if len(raw) == 0 {
		return nil, eris.Wrap(model.ErrDataFormat, "census: empty response")
	}
	if len(raw) == 1 {
		return nil, eris.Wrap(model.ErrDataFormat, "census: response has a header but no rows")
	}

	header := make([]string, len(raw[0]))
	colIdx := make(map[string]int, len(header))
	for i, cell := range raw[0] {
		name, ok := cell.(string)
		if !ok || name == "" {
			return nil, eris.Wrapf(model.ErrDataFormat, "census: header column %d is not a name", i)
		}
		if dst, ok := p.Rename[name]; ok {
			name = dst
		}
		if _, dup := colIdx[name]; dup {
			return nil, eris.Wrapf(model.ErrDataFormat, "census: duplicate column %q", name)
		}
		header[i] = name
		colIdx[name] = i
	}

	for _, c := range geoColumns {
		if _, ok := colIdx[c]; !ok {
			return nil, eris.Wrapf(model.ErrDataFormat, "census: missing geography column %q", c)
		}
	}
	numeric := numericColumns(p)
	for _, c := range numeric {
		if _, ok := colIdx[c]; !ok {
			return nil, eris.Wrapf(model.ErrDataFormat, "census: missing column %q", c)
		}
	}

	records := make([]model.DemographicRecord, 0, len(raw)-1)
	for n, row := range raw[1:] {
		line := n + 1
		if len(row) != len(header) {
			return nil, eris.Wrapf(model.ErrDataFormat, "census: row %d has %d cells, header has %d", line, len(row), len(header))
		}

		rec := model.DemographicRecord{Counts: make(map[string]int64, len(numeric)+1)}
		geo := make([]string, len(geoColumns))
		for i, c := range geoColumns {
			v, ok := cellString(row[colIdx[c]])
			if !ok || v == "" {
				return nil, eris.Wrapf(model.ErrDataFormat, "census: row %d: empty %s", line, c)
			}
			geo[i] = v
		}
		rec.State, rec.County, rec.Tract, rec.Block = geo[0], geo[1], geo[2], geo[3]

		for _, c := range numeric {
			v, err := cellInt(row[colIdx[c]])
			if err != nil {
				return nil, eris.Wrapf(model.ErrDataFormat, "census: row %d (block %s): column %s: %v", line, rec.GEOID(), c, err)
			}
			rec.Counts[c] = v
		}

		if err := deriveUnder18(&rec, p); err != nil {
			return nil, eris.Wrapf(err, "census: row %d (block %s)", line, rec.GEOID())
		}
		records = append(records, rec)
	}
	return records, nil
}

func deriveUnder18(rec *model.DemographicRecord, p Profile) error {
	switch p.Variant {
	case VariantPopulation:
		u := rec.Counts[p.CountField] - rec.Counts[p.Over18Field]
		if u < 0 {
			return eris.Wrapf(model.ErrDataFormat, "%s %d is below %s %d",
				p.CountField, rec.Counts[p.CountField], p.Over18Field, rec.Counts[p.Over18Field])
		}
		rec.Counts[model.Under18] = u
	case VariantHousehold:
		var u int64
		for _, part := range p.Under18Parts {
			u += rec.Counts[part]
			delete(rec.Counts, part)
		}
		rec.Counts[model.Under18] = u
	default:
		return eris.Wrapf(model.ErrDataFormat, "unknown variant %q", p.Variant)
	}
	return nil
}

// numericColumns lists the rename targets in variable order.
func numericColumns(p Profile) []string {
	out := make([]string, 0, len(p.Rename))
	for _, v := range p.Variables {
		if dst, ok := p.Rename[v]; ok {
			out = append(out, dst)
		}
	}
	return out
}

func cellString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatFloat(x, 'f', -1, 64), true
		}
	}
	return "", false
}

func cellInt(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, eris.New("null value")
	case float64:
		if x != math.Trunc(x) || math.Abs(x) > 1<<53 {
			return 0, eris.Errorf("%v is not an integer", x)
		}
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, eris.Errorf("%q is not an integer", x)
		}
		return n, nil
	}
	return 0, eris.Errorf("unexpected %T", v)
}
