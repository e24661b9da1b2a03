package fetcher

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	args := m.Called(ctx, url)
	if rc, ok := args.Get(0).(io.ReadCloser); ok {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFetcher) DownloadToFile(ctx context.Context, url, path string) (int64, error) {
	args := m.Called(ctx, url, path)
	return args.Get(0).(int64), args.Error(1)
}

func TestRouterDispatchesOnScheme(t *testing.T) {
	httpF, ftpF := new(mockFetcher), new(mockFetcher)
	r := NewRouter(httpF, ftpF)
	ctx := context.Background()

	httpF.On("Download", ctx, "https://api.census.gov/data").Return(io.NopCloser(strings.NewReader("x")), nil)
	ftpF.On("DownloadToFile", ctx, "ftp://ftp2.census.gov/a.zip", "/tmp/a.zip").Return(int64(3), nil)

	_, err := r.Download(ctx, "https://api.census.gov/data")
	require.NoError(t, err)
	n, err := r.DownloadToFile(ctx, "ftp://ftp2.census.gov/a.zip", "/tmp/a.zip")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	httpF.AssertExpectations(t)
	ftpF.AssertExpectations(t)
}

func TestRouterRejectsUnknownScheme(t *testing.T) {
	r := NewRouter(new(mockFetcher), nil)
	_, err := r.Download(context.Background(), "s3://bucket/key")
	assert.Error(t, err)
	_, err = r.DownloadToFile(context.Background(), "ftp://host/x", "/tmp/x")
	assert.Error(t, err)
}
