package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Source fetches site resources by their relative path (e.g. "events/index.json").
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// DirSource serves resources from a local checkout of the static site.
type DirSource struct {
	Root string
}

// NewDirSource returns a DirSource rooted at root.
func NewDirSource(root string) *DirSource {
	return &DirSource{Root: root}
}

// Fetch reads the file, reporting a missing file the same way the HTTP source
// reports a 404.
func (s *DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean, err := cleanResourcePath(name)
	if err != nil {
		return nil, &FetchError{Path: name, StatusCode: http.StatusBadRequest, Err: err}
	}

	data, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(clean)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FetchError{Path: name, StatusCode: http.StatusNotFound, Err: err}
		}
		return nil, &FetchError{Path: name, Err: err}
	}
	return data, nil
}

// HTTPSource fetches resources from a deployed copy of the site.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSource returns an HTTPSource; timeout 0 means no timeout.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

// Fetch GETs the resource and treats any non-2xx status as a failure.
func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	clean, err := cleanResourcePath(name)
	if err != nil {
		return nil, &FetchError{Path: name, StatusCode: http.StatusBadRequest, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/"+clean, nil)
	if err != nil {
		return nil, &FetchError{Path: name, Err: err}
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, &FetchError{Path: name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Path: name, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Path: name, Err: err}
	}
	return data, nil
}

// cleanResourcePath keeps fetches inside the site root.
func cleanResourcePath(name string) (string, error) {
	clean := path.Clean("/" + name)[1:]
	if clean == "" || clean != strings.TrimPrefix(name, "/") {
		return "", fmt.Errorf("invalid resource path %q", name)
	}
	return clean, nil
}
