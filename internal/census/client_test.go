package census

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pn-weights/internal/fetcher"
	"github.com/sells-group/pn-weights/internal/model"
	"github.com/sells-group/pn-weights/internal/resilience"
)

var philadelphia = model.Jurisdiction{State: "42", County: "101"}

func TestRequestURL(t *testing.T) {
	p := validPopulation()
	assert.Equal(t,
		"https://api.census.gov/data/2020/dec/pl?get=P1_001N,P3_001N,H1_001N,H1_002N&for=block:*&in=state:42+county:101",
		RequestURL(p, philadelphia, ""))

	got := RequestURL(p, model.Jurisdiction{State: "6", County: "37"}, "a b")
	assert.Equal(t,
		"https://api.census.gov/data/2020/dec/pl?get=P1_001N,P3_001N,H1_001N,H1_002N&for=block:*&in=state:06+county:037&key=a+b",
		got)
	assert.Equal(t,
		"https://api.census.gov/data/2020/dec/pl?get=P1_001N,P3_001N,H1_001N,H1_002N&for=block:*&in=state:06+county:037&key=REDACTED",
		fetcher.Redact(got))

	p.BaseURL = "https://example.test/data?dataset=pl"
	assert.Contains(t, RequestURL(p, philadelphia, ""), "?dataset=pl&get=")
}

func testClient(apiKey string) *Client {
	return NewClient(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		Retry:      &resilience.Policy{Initial: time.Millisecond, Max: 2 * time.Millisecond},
	}), apiKey)
}

func TestClientLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2020/dec/pl", r.URL.Path)
		assert.Equal(t, "P1_001N,P3_001N,H1_001N,H1_002N", r.URL.Query().Get("get"))
		assert.Equal(t, "block:*", r.URL.Query().Get("for"))
		assert.Contains(t, r.URL.RawQuery, "&in=state:42+county:101&")
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(popTable))
	}))
	defer srv.Close()

	p := validPopulation()
	p.BaseURL = srv.URL + "/data/2020/dec/pl"

	recs, err := testClient("secret").Load(context.Background(), p, philadelphia)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, int64(30), recs[0].Counts[model.Under18])
}

func TestClientLoadFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := validPopulation()
	p.BaseURL = srv.URL
	_, err := testClient("").Load(context.Background(), p, philadelphia)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "census: fetch population")
	assert.False(t, eris.Is(err, model.ErrDataFormat))
}

func TestClientLoadErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("error: invalid key"))
	}))
	defer srv.Close()

	p := validPopulation()
	p.BaseURL = srv.URL
	_, err := testClient("s3cr3t").Load(context.Background(), p, philadelphia)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error: invalid key")
	assert.NotContains(t, err.Error(), "s3cr3t")
}

func TestClientLoadMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	p := validPopulation()
	p.BaseURL = srv.URL
	_, err := testClient("").Load(context.Background(), p, philadelphia)
	assert.True(t, eris.Is(err, model.ErrDataFormat))
}

func TestClientLoadRejectsBadInputs(t *testing.T) {
	c := testClient("")
	_, err := c.Load(context.Background(), Profile{Name: "x"}, philadelphia)
	assert.True(t, eris.Is(err, model.ErrDataFormat))

	_, err = c.Load(context.Background(), validPopulation(), model.Jurisdiction{State: "PA", County: "101"})
	assert.Error(t, err)
}
