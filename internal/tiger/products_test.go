package tiger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockProduct(t *testing.T) {
	p, err := BlockProduct(2020)
	require.NoError(t, err)
	assert.Equal(t, "TRACTCE20", p.Field("TRACTCE"))
	assert.Equal(t, "tabblock20", p.Table)

	p, err = BlockProduct(2015)
	require.NoError(t, err)
	assert.Equal(t, "STATEFP10", p.Field("STATEFP"))
	assert.Equal(t, "TABBLOCK", p.Dir)

	p, err = BlockProduct(2010)
	require.NoError(t, err)
	assert.Equal(t, "TABBLOCK/2010", p.Dir)

	_, err = BlockProduct(2000)
	assert.Error(t, err)
}

func TestDownloadURL(t *testing.T) {
	p, err := BlockProduct(2020)
	require.NoError(t, err)
	assert.Equal(t,
		"https://www2.census.gov/geo/tiger/TIGER2020/TABBLOCK20/tl_2020_42_tabblock20.zip",
		DownloadURL("", p, "42"))
	assert.Equal(t,
		"ftp://ftp2.census.gov/geo/tiger/TIGER2020/TABBLOCK20/tl_2020_42_tabblock20.zip",
		DownloadURL("ftp://ftp2.census.gov/geo/tiger/", p, "42"))

	p, err = BlockProduct(2019)
	require.NoError(t, err)
	assert.Equal(t,
		"https://www2.census.gov/geo/tiger/TIGER2019/TABBLOCK/tl_2019_06_tabblock10.zip",
		DownloadURL(DefaultBaseURL, p, "06"))
}

func TestStateFIPS(t *testing.T) {
	cases := map[string]string{"PA": "42", "pa": "42", "42": "42", "6": "06", " dc ": "11"}
	for in, want := range cases {
		got, ok := StateFIPS(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "ZZ", "99", "3"} {
		_, ok := StateFIPS(bad)
		assert.False(t, ok, bad)
	}
}
