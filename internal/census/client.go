package census

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pn-weights/internal/fetcher"
	"github.com/sells-group/pn-weights/internal/model"
)

// Client loads census tables through a Fetcher.
type Client struct {
	fetcher fetcher.Fetcher
	apiKey  string
}

// NewClient returns a client that appends apiKey to requests when set.
func NewClient(f fetcher.Fetcher, apiKey string) *Client {
	return &Client{fetcher: f, apiKey: apiKey}
}

// Load fetches p for j and parses the response. Fetch failures are returned
// as is; malformed tables wrap model.ErrDataFormat.
func (c *Client) Load(ctx context.Context, p Profile, j model.Jurisdiction) ([]model.DemographicRecord, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := j.Validate(); err != nil {
		return nil, eris.Wrap(err, "census: load")
	}

	u := RequestURL(p, j, c.apiKey)
	log := zap.L().With(zap.String("component", "census"), zap.String("profile", p.Name))
	log.Info("fetching census table", zap.String("url", fetcher.Redact(u)), zap.Stringer("jurisdiction", j))

	body, err := c.fetcher.Download(ctx, u)
	if err != nil {
		return nil, eris.Wrapf(err, "census: fetch %s", p.Name)
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "census: read response")
	}

	records, err := Parse(data, p)
	if err != nil {
		return nil, err
	}
	log.Info("census table loaded", zap.Int("records", len(records)), zap.Int("bytes", len(data)))
	return records, nil
}
