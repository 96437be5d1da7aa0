package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned by a Source when the named document does not exist.
var ErrNotFound = errors.New("content: not found")

// MaxDocumentSize limits a single data file to 8MB
const MaxDocumentSize = 8 << 20

// Source reads raw list documents ("list.json", "<path>.json", ...).
type Source interface {
	Read(ctx context.Context, name string) ([]byte, error)
}

// FileSource reads documents from a local data directory.
type FileSource struct {
	Dir string
}

// NewFileSource returns a Source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

func (s *FileSource) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !filepath.IsLocal(name) {
		return nil, fmt.Errorf("read %s: path escapes data directory", name)
	}

	f, err := os.Open(filepath.Join(s.Dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("read %s: document exceeds %d bytes", name, MaxDocumentSize)
	}
	return data, nil
}

// HTTPSource reads documents relative to a base URL, e.g. a GitHub Pages
// deployment of the list's data directory.
type HTTPSource struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPSource returns a Source fetching from baseURL. A nil client gets a
// default one with the given timeout.
func NewHTTPSource(baseURL string, client *http.Client, timeout time.Duration) (*HTTPSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse data url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse data url: unsupported scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPSource{base: u, client: client}, nil
}

func (s *HTTPSource) Read(ctx context.Context, name string) ([]byte, error) {
	if !filepath.IsLocal(name) {
		return nil, fmt.Errorf("fetch %s: path escapes data url", name)
	}
	target := s.base.ResolveReference(&url.URL{Path: name})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("fetch %s: %w", name, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", name, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("fetch %s: document exceeds %d bytes", name, MaxDocumentSize)
	}
	return data, nil
}
