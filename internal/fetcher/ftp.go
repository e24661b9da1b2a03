package fetcher

import (
	"context"
	"errors"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pn-weights/internal/resilience"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout    time.Duration
	User       string
	Password   string
	MaxRetries int
	Retry      *resilience.Policy
}

// FTPFetcher downloads from FTP mirrors of the Census file server, such as
// ftp2.census.gov.
type FTPFetcher struct {
	opts  FTPOptions
	retry resilience.Policy
}

// NewFTPFetcher creates an FTPFetcher that logs in anonymously unless a
// user is given.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.User == "" {
		opts.User, opts.Password = "anonymous", "anonymous@"
	}
	policy := resilience.DefaultPolicy()
	if opts.Retry != nil {
		policy = *opts.Retry
	}
	policy = policy.WithAttempts(opts.MaxRetries)
	policy.Retryable = ftpRetryable
	return &FTPFetcher{opts: opts, retry: policy}
}

// ftpRetryable treats 4xx replies (busy server, dropped data connection) as
// transient and 5xx replies (missing file, bad login) as final.
func ftpRetryable(err error) bool {
	var te *textproto.Error
	if errors.As(err, &te) {
		return te.Code >= 400 && te.Code < 500
	}
	return resilience.IsTransient(err)
}

// parseFTPURL splits an ftp:// URL into host:port and path.
func parseFTPURL(rawURL string) (host string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		return "", "", eris.New("empty path in ftp url")
	}

	host = u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}
	return host, u.Path, nil
}

// transfer is an open RETR. Closing it ends the transfer and logs out.
type transfer struct {
	*ftp.Response
	conn *ftp.ServerConn
	// size is the server-reported file size, -1 when the server has no SIZE.
	size int64
}

func (t *transfer) Close() error {
	err := t.Response.Close()
	if qerr := t.conn.Quit(); err == nil && qerr != nil {
		err = eris.Wrap(qerr, "quit ftp connection")
	}
	return eris.Wrap(err, "close ftp transfer")
}

// open dials, logs in and starts retrieving path.
func (f *FTPFetcher) open(ctx context.Context, host, path string) (*transfer, error) {
	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}
	if err := conn.Login(f.opts.User, f.opts.Password); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "ftp login")
	}

	size, err := conn.FileSize(path)
	if err != nil {
		size = -1
	}
	resp, err := conn.Retr(path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "ftp retrieve %s", path)
	}
	return &transfer{Response: resp, conn: conn, size: size}, nil
}

func (f *FTPFetcher) start(ctx context.Context, ftpURL string) (*transfer, error) {
	host, path, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("fetcher: ftp transfer", zap.String("host", host), zap.String("path", path))

	policy := f.retry
	policy.OnRetry = resilience.LogRetries(ftpURL)
	return resilience.RetryValue(ctx, policy, func(ctx context.Context) (*transfer, error) {
		return f.open(ctx, host, path)
	})
}

// Download returns a reader over the file. Closing it releases the
// connection.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	t, err := f.start(ctx, ftpURL)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DownloadToFile saves the file to path. When the server reports a size, a
// shorter transfer is an error and path is not created.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, ftpURL string, path string) (int64, error) {
	t, err := f.start(ctx, ftpURL)
	if err != nil {
		return 0, err
	}
	defer t.Close() //nolint:errcheck

	n, err := saveFile(t, path)
	if err != nil {
		return n, err
	}
	if t.size >= 0 && n != t.size {
		_ = os.Remove(path)
		return n, eris.Errorf("ftp: %s truncated: got %d of %d bytes", ftpURL, n, t.size)
	}
	return n, nil
}
