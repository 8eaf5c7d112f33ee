package grammar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"braces.dev/errtrace"
	"go.abhg.dev/docsyntax/internal/errdefer"
	"golang.org/x/time/rate"
)

// ErrNotFound indicates that a grammar file does not exist.
var ErrNotFound = errors.New("grammar file not found")

// Fetcher retrieves the contents of grammar files.
type Fetcher interface {
	// Fetch retrieves the file at the given path.
	// It reports ErrNotFound if the file does not exist.
	Fetch(ctx context.Context, file string) ([]byte, error)
}

// Source is a location holding grammar files.
type Source interface {
	Fetcher

	// Exists reports whether a file exists
	// without retrieving its contents.
	Exists(ctx context.Context, file string) (bool, error)
}

// NewSource builds a Source for the given location.
// http and https URLs are accessed over HTTP.
// Anything else is treated as a directory on disk.
func NewSource(base string) (Source, error) {
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		if _, err := url.Parse(base); err != nil {
			return nil, errtrace.Wrap(err)
		}
		return &HTTPSource{BaseURL: base}, nil
	}

	info, err := os.Stat(base)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	if !info.IsDir() {
		return nil, errtrace.Errorf("%v: not a directory", base)
	}
	return &FSSource{FS: os.DirFS(base)}, nil
}

// StatusError is returned when an HTTP grammar request
// fails with an unexpected status code.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: unexpected status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Is reports whether this error matches ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// HTTPSource is a Source that retrieves grammar files over HTTP.
type HTTPSource struct {
	// BaseURL is the URL that file paths are relative to.
	// If empty, file paths must be absolute URLs.
	BaseURL string

	// Client is the HTTP client to use.
	// Defaults to http.DefaultClient.
	Client *http.Client

	// Limiter, if set, paces requests made by this source.
	Limiter *rate.Limiter
}

var _ Source = (*HTTPSource)(nil)

func (s *HTTPSource) url(file string) (string, error) {
	if s.BaseURL == "" {
		return file, nil
	}
	u, err := url.JoinPath(s.BaseURL, file)
	return u, errtrace.Wrap(err)
}

func (s *HTTPSource) do(ctx context.Context, method, file string) (*http.Response, error) {
	u, err := s.url(file)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return nil, errtrace.Wrap(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		_ = res.Body.Close()
		return nil, errtrace.Wrap(&StatusError{URL: u, Code: res.StatusCode})
	}
	return res, nil
}

// Exists issues a HEAD request for the file.
// A 404 response reports false with no error.
func (s *HTTPSource) Exists(ctx context.Context, file string) (bool, error) {
	res, err := s.do(ctx, http.MethodHead, file)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, errtrace.Wrap(err)
	}
	_ = res.Body.Close()
	return true, nil
}

// Fetch retrieves the file with a GET request.
func (s *HTTPSource) Fetch(ctx context.Context, file string) (_ []byte, err error) {
	res, err := s.do(ctx, http.MethodGet, file)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	defer errdefer.Close(&err, res.Body)

	bs, err := io.ReadAll(res.Body)
	return bs, errtrace.Wrap(err)
}

// FSSource is a Source backed by a file system,
// such as grammars bundled into the binary.
type FSSource struct {
	FS fs.FS
}

var _ Source = (*FSSource)(nil)

// Exists reports whether the file exists in the file system.
func (s *FSSource) Exists(_ context.Context, file string) (bool, error) {
	_, err := fs.Stat(s.FS, path.Clean(file))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, errtrace.Wrap(err)
	}
}

// Fetch reads the file from the file system.
func (s *FSSource) Fetch(_ context.Context, file string) ([]byte, error) {
	bs, err := fs.ReadFile(s.FS, path.Clean(file))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errtrace.Wrap(fmt.Errorf("%v: %w", file, ErrNotFound))
	}
	return bs, errtrace.Wrap(err)
}
