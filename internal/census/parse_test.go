package census

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pn-weights/internal/model"
)

const popTable = `[
 ["P1_001N","P3_001N","H1_001N","H1_002N","state","county","tract","block"],
 ["120","90","40","38","42","101","000100","1000"],
 ["0","0","0","0","42","101","000100","1001"],
 ["7","7","3","2","42","101","036502","2013"]
]`

func TestParsePopulation(t *testing.T) {
	recs, err := Parse([]byte(popTable), validPopulation())
	require.NoError(t, err)
	require.Len(t, recs, 3)

	r := recs[0]
	assert.Equal(t, "42", r.State)
	assert.Equal(t, "101", r.County)
	assert.Equal(t, "000100", r.Tract)
	assert.Equal(t, "1000", r.Block)
	assert.Equal(t, map[string]int64{
		"Total":              120,
		"Over18":             90,
		"TotalHouseholds":    40,
		"OccupiedHouseholds": 38,
		model.Under18:        30,
	}, r.Counts)
	assert.Equal(t, "421010001001000", r.GEOID())

	assert.Equal(t, int64(0), recs[1].Counts[model.Under18])
	assert.Equal(t, int64(0), recs[2].Counts[model.Under18])
}

func TestParseHousehold(t *testing.T) {
	p, _ := Builtin("household")
	data := `[
 ["P20_001N","P20_003N","P20_004N","P20_005N","P20_006N","state","county","tract","block"],
 ["25","3","5","2","1","42","101","000100","1000"]
]`
	recs, err := Parse([]byte(data), p)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.Equal(t, map[string]int64{
		"TotalHouseholds": 25,
		model.Under18:     11,
	}, recs[0].Counts)
}

func TestParseAcceptsNumbersAndUnpaddedCodes(t *testing.T) {
	data := `[
 ["P1_001N","P3_001N","H1_001N","H1_002N","state","county","tract","block"],
 [12, 10, 4, 4, 42, 101, 100, 42]
]`
	recs, err := Parse([]byte(data), validPopulation())
	require.NoError(t, err)
	assert.Equal(t, "421010001000042", recs[0].GEOID())
	assert.Equal(t, int64(2), recs[0].Counts[model.Under18])
}

func TestParseErrors(t *testing.T) {
	header := `["P1_001N","P3_001N","H1_001N","H1_002N","state","county","tract","block"]`
	tests := []struct {
		name string
		data string
		msg  string
	}{
		{"not json", `<html>error</html>`, "decode response"},
		{"empty", `[]`, "empty response"},
		{"header only", `[` + header + `]`, "no rows"},
		{"missing column", `[["P1_001N","H1_001N","H1_002N","state","county","tract","block"],["1","1","1","42","101","000100","1000"]]`, `missing column "Over18"`},
		{"missing geography", `[["P1_001N","P3_001N","H1_001N","H1_002N","state","county","tract"],["1","1","1","1","42","101","000100"]]`, `missing geography column "block"`},
		{"short row", `[` + header + `,["1","1","1","42","101","000100","1000"]]`, "has 7 cells"},
		{"non-numeric", `[` + header + `,["abc","1","1","1","42","101","000100","1000"]]`, "column Total"},
		{"null count", `[` + header + `,[null,"1","1","1","42","101","000100","1000"]]`, "null value"},
		{"fractional", `[` + header + `,[1.5,"1","1","1","42","101","000100","1000"]]`, "not an integer"},
		{"blank block", `[` + header + `,["1","1","1","1","42","101","000100",""]]`, "empty block"},
		{"negative under18", `[` + header + `,["5","9","1","1","42","101","000100","1000"]]`, "below Over18"},
		{"duplicate column", `[["P1_001N","P1_001N","state","county","tract","block"],["1","1","42","101","000100","1000"]]`, "duplicate column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), validPopulation())
			require.Error(t, err)
			assert.True(t, eris.Is(err, model.ErrDataFormat), "got %v", err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
