package weights

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pn-weights/internal/model"
)

// Fields names the counts the aggregator sums. Both the population and the
// household weights use the same routine with different fields.
type Fields struct {
	// Label prefixes the weight columns, e.g. "TotalPopulation".
	Label string
	// Count is the primary count, e.g. "Total" or "TotalHouseholds".
	Count string
	// Under18 defaults to model.Under18.
	Under18 string
}

type sums struct {
	total, totalInPN, under18, under18InPN int64
}

// Aggregate groups flagged records by tract and computes, per tract, the
// share of Count and of Under18 that lies in PN blocks. Rows are sorted by
// tract and carry j's codes. A zero denominator gives a NaN weight; a zero
// numerator over a positive denominator gives 0.
func Aggregate(flagged []model.FlaggedRecord, f Fields, j model.Jurisdiction) (model.WeightTable, error) {
	if f.Label == "" || f.Count == "" {
		return model.WeightTable{}, eris.New("weights: label and count field are required")
	}
	if f.Under18 == "" {
		f.Under18 = model.Under18
	}
	if err := j.Validate(); err != nil {
		return model.WeightTable{}, eris.Wrap(err, "weights: aggregate")
	}
	j = j.Normalized()

	byTract := make(map[string]*sums)
	for _, r := range flagged {
		if !j.Contains(r.State, r.County) {
			return model.WeightTable{}, eris.Wrapf(model.ErrJoinIntegrity,
				"weights: record %s is outside jurisdiction %s", r.GEOID(), j)
		}
		total, ok := r.Count(f.Count)
		if !ok {
			return model.WeightTable{}, eris.Wrapf(model.ErrDataFormat, "weights: record %s has no %s", r.GEOID(), f.Count)
		}
		under18, ok := r.Count(f.Under18)
		if !ok {
			return model.WeightTable{}, eris.Wrapf(model.ErrDataFormat, "weights: record %s has no %s", r.GEOID(), f.Under18)
		}

		tract := model.ZeroPad(r.Tract, model.TractWidth)
		s := byTract[tract]
		if s == nil {
			s = &sums{}
			byTract[tract] = s
		}
		s.total += total
		s.under18 += under18
		if r.InPN {
			s.totalInPN += total
			s.under18InPN += under18
		}
	}

	tracts := make([]string, 0, len(byTract))
	for t := range byTract {
		tracts = append(tracts, t)
	}
	sort.Strings(tracts)

	table := model.WeightTable{Label: f.Label, Rows: make([]model.TractWeight, 0, len(tracts))}
	for _, t := range tracts {
		s := byTract[t]
		table.Rows = append(table.Rows, model.TractWeight{
			State:         j.State,
			County:        j.County,
			Tract:         t,
			Total:         s.total,
			TotalInPN:     s.totalInPN,
			Under18:       s.under18,
			Under18InPN:   s.under18InPN,
			Weight:        model.Ratio(s.totalInPN, s.total),
			Under18Weight: model.Ratio(s.under18InPN, s.under18),
		})
	}
	return table, nil
}
