package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ErrMissingRequired reports that a required portal file is absent from the
// staging area after a fetch. Distinct from transport failures so callers
// can tell "server unreachable" from "server reachable but incomplete".
var ErrMissingRequired = errors.New("required portal file missing after fetch")

// maxAssetSize caps a single download. Portal files are a few KB; anything
// near this is the wrong response body.
const maxAssetSize = 4 << 20

// StagedAsset is one accepted file in the staging directory.
type StagedAsset struct {
	Name string
	Path string
	Size int64
}

// Fetcher downloads the portal manifest into a staging directory. Files are
// written as hidden partials, validated, and promoted together, so a failed
// fetch never leaves a half-accepted staging area.
type Fetcher struct {
	client  *http.Client
	baseURL string
	staging string
	log     *zap.Logger
}

// NewFetcher creates a Fetcher pulling from baseURL into staging.
func NewFetcher(log *zap.Logger, baseURL, staging string) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		staging: staging,
		log:     log,
	}
}

// Fetch downloads and validates every manifest entry. A failing required
// entry aborts the whole fetch with nothing accepted. A failing optional
// entry gets one direct retry, then is skipped with a warning.
func (f *Fetcher) Fetch(ctx context.Context, entries []Entry) ([]StagedAsset, error) {
	if err := os.MkdirAll(f.staging, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	type partial struct {
		entry Entry
		path  string
		size  int64
	}
	var partials []partial

	cleanup := func() {
		for _, p := range partials {
			os.Remove(p.path)
		}
	}

	for _, e := range entries {
		path, size, err := f.download(ctx, e.Name, false)
		if err != nil && !e.Required {
			// Optional files get one retry against the server root, which
			// serves the same files outside the splash prefix.
			f.log.Warn("optional portal file failed, retrying direct",
				zap.String("file", e.Name), zap.Error(err))
			path, size, err = f.download(ctx, e.Name, true)
		}
		if err != nil {
			if e.Required {
				cleanup()
				return nil, fmt.Errorf("fetch %s: %w", e.Name, err)
			}
			f.log.Warn("skipping optional portal file",
				zap.String("file", e.Name), zap.Error(err))
			continue
		}
		partials = append(partials, partial{entry: e, path: path, size: size})
	}

	// Everything validated; promote partials to their final names.
	staged := make([]StagedAsset, 0, len(partials))
	for _, p := range partials {
		final := filepath.Join(f.staging, p.entry.Name)
		if err := os.Rename(p.path, final); err != nil {
			cleanup()
			return nil, fmt.Errorf("promote %s: %w", p.entry.Name, err)
		}
		staged = append(staged, StagedAsset{Name: p.entry.Name, Path: final, Size: p.size})
	}

	if err := verifyRequired(f.staging, entries); err != nil {
		return nil, err
	}
	return staged, nil
}

// download fetches one file to a hidden partial in staging and validates it.
func (f *Fetcher) download(ctx context.Context, name string, direct bool) (string, int64, error) {
	parts := []string{"splash", name}
	if direct {
		parts = []string{name}
	}
	u, err := url.JoinPath(f.baseURL, parts...)
	if err != nil {
		return "", 0, fmt.Errorf("build url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("get %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("get %s: status %d", u, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize))
	if err != nil {
		return "", 0, fmt.Errorf("read %s: %w", u, err)
	}
	if err := Validate(name, data); err != nil {
		return "", 0, err
	}

	path := filepath.Join(f.staging, "."+name+".part")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", 0, fmt.Errorf("stage %s: %w", name, err)
	}
	return path, int64(len(data)), nil
}

// verifyRequired re-checks that every required entry is present and
// non-empty in the staging directory.
func verifyRequired(staging string, entries []Entry) error {
	var missing []string
	for _, e := range entries {
		if !e.Required {
			continue
		}
		info, err := os.Stat(filepath.Join(staging, e.Name))
		if err != nil || info.Size() == 0 {
			missing = append(missing, e.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingRequired, missing)
	}
	return nil
}
