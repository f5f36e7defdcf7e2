// SPDX-License-Identifier: EPL-2.0

package vfs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotSeekable = errors.New("source is not seekable")
	ErrUnsupported = errors.New("unsupported source scheme")
)

// File is a byte source handed to every format backend.
type File interface {
	io.Reader
	io.Seeker
	io.Closer

	// Tell reports the current read position.
	Tell() (int64, error)
	// Streaming is true for sources that cannot seek (network streams).
	Streaming() bool
	// Peek returns up to n bytes at the current position without
	// consuming them.
	Peek(n int) ([]byte, error)
	// Name is the path or URL the file was opened from.
	Name() string
}

// StreamNamer is implemented by network sources that announce a station
// name (icy-name).
type StreamNamer interface {
	StreamName() string
}

// Open opens a local path, a file:// URL or an http(s):// stream.
func Open(ctx context.Context, name string) (File, error) {
	u, err := url.Parse(name)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return OpenLocal(name)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return OpenLocal(u.Path)
	case "http", "https":
		return OpenHTTP(ctx, http.DefaultClient, name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, u.Scheme)
	}
}

// Ext returns the lower-cased extension of name, URLs included.
func Ext(name string) string {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		name = u.Path
	}

	return strings.ToLower(filepath.Ext(name))
}

type localFile struct {
	f    *os.File
	name string
}

// OpenLocal opens a file on disk.
func OpenLocal(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return &localFile{f: f, name: path}, nil
}

func (l *localFile) Read(p []byte) (int, error) { return l.f.Read(p) }
func (l *localFile) Close() error               { return l.f.Close() }
func (l *localFile) Streaming() bool            { return false }
func (l *localFile) Name() string               { return l.name }

func (l *localFile) Seek(offset int64, whence int) (int64, error) {
	return l.f.Seek(offset, whence)
}

func (l *localFile) Tell() (int64, error) {
	return l.f.Seek(0, io.SeekCurrent)
}

func (l *localFile) Peek(n int) ([]byte, error) {
	pos, err := l.Tell()
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	buf := make([]byte, n)
	got, err := io.ReadFull(l.f, buf)
	if _, serr := l.f.Seek(pos, io.SeekStart); serr != nil {
		return nil, fmt.Errorf("%w", serr)
	}
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w", err)
	}

	return buf[:got], nil
}

type httpFile struct {
	body   io.ReadCloser
	r      *bufio.Reader
	pos    int64
	name   string
	stream string
}

// OpenHTTP starts a GET request and exposes the body as a non-seekable File.
func OpenHTTP(ctx context.Context, client *http.Client, rawURL string) (File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	req.Header.Set("Icy-MetaData", "0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}

	return &httpFile{
		body:   resp.Body,
		r:      bufio.NewReaderSize(resp.Body, 64*1024),
		name:   rawURL,
		stream: resp.Header.Get("icy-name"),
	}, nil
}

func (h *httpFile) Read(p []byte) (int, error) {
	n, err := h.r.Read(p)
	h.pos += int64(n)
	return n, err
}

func (h *httpFile) Seek(offset int64, whence int) (int64, error) {
	// A no-op seek is allowed so callers can query the position.
	if offset == 0 && whence == io.SeekCurrent {
		return h.pos, nil
	}

	return h.pos, ErrNotSeekable
}

func (h *httpFile) Tell() (int64, error) { return h.pos, nil }
func (h *httpFile) Close() error         { return h.body.Close() }
func (h *httpFile) Streaming() bool      { return true }
func (h *httpFile) Name() string         { return h.name }
func (h *httpFile) StreamName() string   { return h.stream }

func (h *httpFile) Peek(n int) ([]byte, error) {
	buf, err := h.r.Peek(n)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("%w", err)
	}

	out := make([]byte, len(buf))
	copy(out, buf)

	return out, nil
}
