package tiger

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pn-weights/internal/fetcher"
	"github.com/sells-group/pn-weights/internal/layer"
)

// Download makes the shapefile behind a TIGER/Line ZIP url available under
// destDir and returns its .shp path. The archive is kept as destDir/<name>.zip
// and extracted into destDir/<name>/. A cached archive is reused; one that no
// longer extracts is fetched again once.
func Download(ctx context.Context, f fetcher.Fetcher, url, destDir string) (string, error) {
	name := path.Base(url)
	if !strings.EqualFold(path.Ext(name), ".zip") {
		return "", eris.Errorf("tiger: %s is not a ZIP url", url)
	}
	stem := strings.TrimSuffix(name, path.Ext(name))
	zipPath := filepath.Join(destDir, name)
	extractDir := filepath.Join(destDir, stem)

	log := zap.L().With(zap.String("component", "tiger"), zap.String("url", url))

	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrap(err, "tiger: create dest dir")
	}

	cached := false
	if info, err := os.Stat(zipPath); err == nil && info.Size() > 0 {
		cached = true
		log.Debug("reusing downloaded archive", zap.String("path", zipPath))
	} else if err := fetch(ctx, f, url, zipPath, log); err != nil {
		return "", err
	}

	shpPath, err := unpack(zipPath, extractDir, stem)
	if err != nil && cached {
		log.Warn("cached archive is unusable, downloading again", zap.Error(err))
		_ = os.Remove(zipPath)
		if err := fetch(ctx, f, url, zipPath, log); err != nil {
			return "", err
		}
		shpPath, err = unpack(zipPath, extractDir, stem)
	}
	if err != nil {
		return "", err
	}
	return shpPath, nil
}

func fetch(ctx context.Context, f fetcher.Fetcher, url, zipPath string, log *zap.Logger) error {
	log.Info("downloading TIGER/Line archive")
	n, err := f.DownloadToFile(ctx, url, zipPath)
	if err != nil {
		return eris.Wrap(err, "tiger: download")
	}
	log.Info("downloaded TIGER/Line archive", zap.Int64("bytes", n))
	return nil
}

// unpack extracts zipPath and returns the .shp named after the archive, or
// the first .shp when the archive was renamed.
func unpack(zipPath, dir, stem string) (string, error) {
	if err := layer.ExtractZIP(zipPath, dir); err != nil {
		return "", eris.Wrap(err, "tiger: extract")
	}
	want := filepath.Join(dir, stem+".shp")
	if _, err := os.Stat(want); err == nil {
		return want, nil
	}
	shpPath, err := layer.FindFileByExt(dir, ".shp")
	if err != nil {
		return "", eris.Wrap(err, "tiger: find .shp")
	}
	return shpPath, nil
}
