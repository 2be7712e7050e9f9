package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Fetcher resolves asset paths against a base that is either a
// directory or an http(s) URL.
type Fetcher struct {
	Base   string
	Client *http.Client
}

// NewFetcher creates a fetcher rooted at base.
func NewFetcher(base string) *Fetcher {
	return &Fetcher{Base: base, Client: http.DefaultClient}
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Resolve returns the full location of path and whether it is remote.
func (f *Fetcher) Resolve(path string) (string, bool) {
	if isRemote(path) {
		return path, true
	}
	if isRemote(f.Base) {
		u, err := url.JoinPath(f.Base, path)
		if err != nil {
			return strings.TrimSuffix(f.Base, "/") + "/" + strings.TrimPrefix(path, "/"), true
		}
		return u, true
	}
	if filepath.IsAbs(path) || f.Base == "" {
		return path, false
	}
	return filepath.Join(f.Base, path), false
}

// Fetch reads the whole asset. Transport failures are KindNetwork.
func (f *Fetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	loc, remote := f.Resolve(path)
	if !remote {
		if err := ctx.Err(); err != nil {
			return nil, newLoadError(KindNetwork, path, err)
		}
		data, err := os.ReadFile(loc)
		if err != nil {
			return nil, newLoadError(KindNetwork, path, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return nil, newLoadError(KindNetwork, path, err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, newLoadError(KindNetwork, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newLoadError(KindNetwork, path, fmt.Errorf("unexpected status %s", resp.Status))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newLoadError(KindNetwork, path, err)
	}
	return data, nil
}
