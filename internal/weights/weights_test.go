package weights

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pn-weights/internal/model"
)

var philadelphia = model.Jurisdiction{State: "42", County: "101"}

func rec(tract, block string, total, under18 int64) model.DemographicRecord {
	return model.DemographicRecord{
		State: "42", County: "101", Tract: tract, Block: block,
		Counts: map[string]int64{"Total": total, model.Under18: under18},
	}
}

func pnBlock(tract, block string) model.IntersectedBlock {
	return model.IntersectedBlock{
		Block:    model.BlockPolygon{StateFP: "42", CountyFP: "101", TractCE: tract, BlockCE: block, TotalArea: 100},
		AreaInPN: 100,
	}
}

var population = Fields{Label: "TotalPopulation", Count: "Total"}

func TestThreeBlockTract(t *testing.T) {
	records := []model.DemographicRecord{
		rec("000100", "1000", 50, 10),
		rec("000100", "1001", 30, 5),
		rec("000100", "1002", 20, 2),
	}
	blocks := []model.IntersectedBlock{pnBlock("000100", "1000"), pnBlock("000100", "1002")}

	flagged, report, err := Join(records, blocks)
	require.NoError(t, err)
	require.Len(t, flagged, 3)
	assert.Equal(t, []bool{true, false, true}, []bool{flagged[0].InPN, flagged[1].InPN, flagged[2].InPN})
	assert.Equal(t, "421010001001000", flagged[0].ID)
	assert.Equal(t, 2, report.InPN)

	table, err := Aggregate(flagged, population, philadelphia)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	row := table.Rows[0]
	assert.Equal(t, "42", row.State)
	assert.Equal(t, "101", row.County)
	assert.Equal(t, "000100", row.Tract)
	assert.InDelta(t, 0.7, row.Weight, 1e-12)
	assert.InDelta(t, 12.0/17.0, row.Under18Weight, 1e-12)
	assert.Equal(t, int64(100), row.Total)
	assert.Equal(t, int64(70), row.TotalInPN)
	assert.Equal(t, int64(17), row.Under18)
	assert.Equal(t, int64(12), row.Under18InPN)
	assert.Equal(t, []string{"State", "County", "Tract", "TotalPopulationWeight", "TotalPopulationUnder18Weight"}, table.Header())
}

func TestJoinZeroPadsIdentifiers(t *testing.T) {
	records := []model.DemographicRecord{rec("7", "42", 5, 1)}
	blocks := []model.IntersectedBlock{pnBlock("000007", "0042")}

	flagged, _, err := Join(records, blocks)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, "421010000070042", flagged[0].ID)
	assert.True(t, flagged[0].InPN)
}

func TestJoinExcludesTractsWithoutPNBlocks(t *testing.T) {
	records := []model.DemographicRecord{
		rec("000100", "1000", 10, 1),
		rec("000200", "1000", 10, 1),
		rec("000200", "1001", 10, 1),
		rec("000300", "2000", 10, 1),
	}
	blocks := []model.IntersectedBlock{pnBlock("000100", "1000")}

	flagged, report, err := Join(records, blocks)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, model.JoinReport{
		Records:         4,
		Kept:            1,
		InPN:            1,
		ExcludedRecords: 3,
		ExcludedTracts:  2,
		PNTracts:        []string{"42101000100"},
	}, report)
}

func TestJoinComparesFullTractIdentifiers(t *testing.T) {
	other := rec("000100", "1001", 10, 1)
	other.County = "045"
	records := []model.DemographicRecord{rec("000100", "1000", 10, 1), other}

	flagged, report, err := Join(records, []model.IntersectedBlock{pnBlock("000100", "1000")})
	require.NoError(t, err)
	assert.Len(t, flagged, 1)
	assert.Equal(t, 1, report.ExcludedRecords)
}

func TestJoinReportsUnmatchedBlocks(t *testing.T) {
	records := []model.DemographicRecord{rec("000100", "1000", 10, 1)}
	blocks := []model.IntersectedBlock{pnBlock("000100", "1000"), pnBlock("000100", "1009"), pnBlock("000100", "1005")}

	_, report, err := Join(records, blocks)
	require.NoError(t, err)
	assert.Equal(t, []string{"421010001001005", "421010001001009"}, report.UnmatchedBlocks)
}

func TestJoinIntegrityErrors(t *testing.T) {
	_, _, err := Join(
		[]model.DemographicRecord{rec("000100", "1000", 10, 1)},
		[]model.IntersectedBlock{pnBlock("000100", "1000"), pnBlock("000200", "1000")},
	)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrJoinIntegrity))
	assert.Contains(t, err.Error(), "42101000200")

	_, _, err = Join(
		[]model.DemographicRecord{rec("000100", "1000", 10, 1), rec("100", "1000", 3, 0)},
		[]model.IntersectedBlock{pnBlock("000100", "1000")},
	)
	assert.True(t, eris.Is(err, model.ErrJoinIntegrity))
	assert.Contains(t, err.Error(), "duplicate record")
}

func TestJoinIsDeterministic(t *testing.T) {
	records := []model.DemographicRecord{
		rec("000100", "1000", 10, 1),
		rec("000100", "1001", 10, 1),
		rec("000200", "3000", 4, 2),
		rec("000200", "3001", 4, 2),
	}
	blocks := []model.IntersectedBlock{pnBlock("000200", "3001"), pnBlock("000100", "1001")}

	first, r1, err := Join(records, blocks)
	require.NoError(t, err)
	for range 5 {
		again, r2, err := Join(records, blocks)
		require.NoError(t, err)
		assert.Equal(t, first, again)
		assert.Equal(t, r1, r2)
	}
}

func TestAggregateUndefinedAndZeroWeights(t *testing.T) {
	flagged := []model.FlaggedRecord{
		{DemographicRecord: rec("000100", "1000", 0, 0), InPN: true},
		{DemographicRecord: rec("000100", "1001", 0, 0)},
		{DemographicRecord: rec("000200", "1000", 8, 0)},
		{DemographicRecord: rec("000200", "1001", 4, 0), InPN: false},
	}
	table, err := Aggregate(flagged, population, philadelphia)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	empty := table.Rows[0]
	assert.Equal(t, "000100", empty.Tract)
	assert.True(t, math.IsNaN(empty.Weight))
	assert.False(t, empty.Defined())
	assert.False(t, empty.Under18Defined())

	zero := table.Rows[1]
	assert.Equal(t, 0.0, zero.Weight)
	assert.True(t, zero.Defined())
	assert.False(t, zero.Under18Defined())
}

func TestAggregateSortsTracts(t *testing.T) {
	flagged := []model.FlaggedRecord{
		{DemographicRecord: rec("036502", "1000", 1, 0)},
		{DemographicRecord: rec("100", "1000", 1, 0)},
		{DemographicRecord: rec("000300", "1000", 1, 0)},
	}
	table, err := Aggregate(flagged, population, model.Jurisdiction{State: "42", County: "101"})
	require.NoError(t, err)
	var tracts []string
	for _, r := range table.Rows {
		tracts = append(tracts, r.Tract)
	}
	assert.Equal(t, []string{"000100", "000300", "036502"}, tracts)
}

func TestAggregateHouseholdFields(t *testing.T) {
	r := model.DemographicRecord{
		State: "42", County: "101", Tract: "000100", Block: "1000",
		Counts: map[string]int64{"TotalHouseholds": 25, model.Under18: 11},
	}
	table, err := Aggregate([]model.FlaggedRecord{{DemographicRecord: r, InPN: true}},
		Fields{Label: "Households", Count: "TotalHouseholds"}, philadelphia)
	require.NoError(t, err)
	assert.Equal(t, 1.0, table.Rows[0].Weight)
	assert.Equal(t, "HouseholdsUnder18Weight", table.Under18Column())
}

func TestAggregateErrors(t *testing.T) {
	good := []model.FlaggedRecord{{DemographicRecord: rec("000100", "1000", 1, 0)}}

	_, err := Aggregate(good, Fields{Count: "Total"}, philadelphia)
	assert.ErrorContains(t, err, "label and count field")

	_, err = Aggregate(good, Fields{Label: "X", Count: "Households"}, philadelphia)
	assert.True(t, eris.Is(err, model.ErrDataFormat))

	_, err = Aggregate(good, population, model.Jurisdiction{State: "42", County: "045"})
	assert.True(t, eris.Is(err, model.ErrJoinIntegrity))

	_, err = Aggregate(good, population, model.Jurisdiction{State: "XX", County: "101"})
	assert.Error(t, err)
}
