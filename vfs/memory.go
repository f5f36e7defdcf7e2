// SPDX-License-Identifier: EPL-2.0

package vfs

import (
	"bytes"
	"errors"
	"io"
)

// MemFile is an in-memory File, used for tests and for buffers that were
// already downloaded.
type MemFile struct {
	r         *bytes.Reader
	name      string
	streaming bool
	closed    int
}

// NewMemFile wraps data. A streaming MemFile refuses to seek.
func NewMemFile(name string, data []byte, streaming bool) *MemFile {
	return &MemFile{r: bytes.NewReader(data), name: name, streaming: streaming}
}

func (m *MemFile) Read(p []byte) (int, error) { return m.r.Read(p) }
func (m *MemFile) Streaming() bool            { return m.streaming }
func (m *MemFile) Name() string               { return m.name }

// Closes reports how many times Close was called.
func (m *MemFile) Closes() int { return m.closed }

func (m *MemFile) Close() error {
	m.closed++
	return nil
}

func (m *MemFile) Seek(offset int64, whence int) (int64, error) {
	if m.streaming && !(offset == 0 && whence == io.SeekCurrent) {
		cur, _ := m.r.Seek(0, io.SeekCurrent)
		return cur, ErrNotSeekable
	}

	return m.r.Seek(offset, whence)
}

func (m *MemFile) Tell() (int64, error) {
	return m.r.Seek(0, io.SeekCurrent)
}

func (m *MemFile) Peek(n int) ([]byte, error) {
	pos, _ := m.r.Seek(0, io.SeekCurrent)
	buf := make([]byte, n)
	got, err := m.r.Read(buf)
	if _, serr := m.r.Seek(pos, io.SeekStart); serr != nil {
		return nil, serr
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return buf[:got], nil
}
