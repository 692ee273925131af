package sharedstrings

import (
	"bufio"
	"encoding/binary"
	"os"
)

// stringStore is the storage backend a Provider writes into during parse
// and reads from at query time.
type stringStore interface {
	append(s string)
	get(i int) (string, bool)
	count() int
	close() error
	reserve(n int)
}

// arenaStore is a contiguous NUL-terminated UTF-8 buffer plus a u32
// offset table. It starts at 8 MiB and grows by Go's normal
// slice-doubling append semantics.
type arenaStore struct {
	buf     []byte
	offsets []uint32
}

const arenaStartSize = 8 * 1024 * 1024

func newArenaStore() *arenaStore {
	return &arenaStore{buf: make([]byte, 0, arenaStartSize)}
}

func (a *arenaStore) append(s string) {
	offset := uint32(len(a.buf))
	a.offsets = append(a.offsets, offset)
	a.buf = append(a.buf, s...)
	a.buf = append(a.buf, 0)
}

func (a *arenaStore) get(i int) (string, bool) {
	if i < 0 || i >= len(a.offsets) {
		return "", false
	}
	start := a.offsets[i]
	end := start
	for end < uint32(len(a.buf)) && a.buf[end] != 0 {
		end++
	}
	return string(a.buf[start:end]), true
}

func (a *arenaStore) count() int   { return len(a.offsets) }
func (a *arenaStore) close() error { return nil }

func (a *arenaStore) reserve(n int) {
	if n > len(a.offsets) {
		grown := make([]uint32, len(a.offsets), n)
		copy(grown, a.offsets)
		a.offsets = grown
	}
}

// spillStore is a temp file of (u32 length, bytes) records plus an
// in-memory u64 offset table. The file is removed on close.
type spillStore struct {
	file      *os.File
	writer    *bufio.Writer
	offsets   []int64
	curOffset int64
	path      string
}

func newSpillStore() (*spillStore, error) {
	f, err := os.CreateTemp("", "xlsxflat-sharedstrings-*.tmp")
	if err != nil {
		return nil, &SpillFailureError{Err: err}
	}
	return &spillStore{
		file:   f,
		writer: bufio.NewWriter(f),
		path:   f.Name(),
	}, nil
}

func (s *spillStore) append(str string) {
	s.offsets = append(s.offsets, s.curOffset)

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(str)))
	n1, _ := s.writer.Write(lenBuf[:])
	n2, _ := s.writer.Write([]byte(str))
	s.curOffset += int64(n1 + n2)
}

func (s *spillStore) get(i int) (string, bool) {
	if i < 0 || i >= len(s.offsets) {
		return "", false
	}
	if err := s.writer.Flush(); err != nil {
		return "", false
	}
	off := s.offsets[i]

	var lenBuf [4]byte
	if _, err := s.file.ReadAt(lenBuf[:], off); err != nil {
		return "", false
	}
	strLen := binary.LittleEndian.Uint32(lenBuf[:])

	data := make([]byte, strLen)
	if _, err := s.file.ReadAt(data, off+4); err != nil {
		return "", false
	}
	return string(data), true
}

func (s *spillStore) count() int { return len(s.offsets) }

func (s *spillStore) reserve(n int) {
	if n > len(s.offsets) {
		grown := make([]int64, len(s.offsets), n)
		copy(grown, s.offsets)
		s.offsets = grown
	}
}

func (s *spillStore) close() error {
	s.writer.Flush()
	err := s.file.Close()
	os.Remove(s.path)
	return err
}
