// Package zipio provides bounded, security-limited access to the Zip
// container that backs an OOXML package. It enforces entry-count,
// per-entry, and total-uncompressed-size limits during the initial
// central-directory scan, normalizes and filters suspicious entry paths,
// and refuses to decompress encrypted entries.
package zipio

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// chunkSize is the buffer size used when streaming an entry's decompressed
// bytes into a contiguous result buffer.
const chunkSize = 512 * 1024

// maxPathLen is the longest normalized entry path the catalog will accept.
const maxPathLen = 1024

// Limits configures the security bounds enforced while opening an
// archive.
type Limits struct {
	MaxEntries           int64
	MaxEntrySize         int64
	MaxTotalUncompressed int64
}

// DefaultLimits returns the documented defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxEntries:           10_000,
		MaxEntrySize:         256 * 1024 * 1024,
		MaxTotalUncompressed: 2 * 1024 * 1024 * 1024,
	}
}

// Entry describes one catalogued (normalized, accepted) Zip entry. An
// encrypted entry never reaches the catalog: Open fails with
// SecurityError as soon as one is seen during the central-directory
// scan, so every catalogued Entry is known-decryptable.
type Entry struct {
	Path             string
	UncompressedSize uint64
}

// Reader is an opened, validated Zip container. All operations after
// Close fail with ErrNotOpen.
type Reader struct {
	zr      *zip.ReadCloser
	limits  Limits
	byPath  map[string]*zip.File
	catalog []Entry
	closed  bool
}

// Open validates the file exists, loads the central directory, and builds
// the entry catalog, enforcing limits along the way.
func Open(path string, limits Limits) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("zipio: %w", err)
		}
		return nil, fmt.Errorf("zipio: stat %s: %w", path, err)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &NotAZipError{Err: err}
	}

	r := &Reader{
		zr:     zr,
		limits: limits,
		byPath: make(map[string]*zip.File),
	}
	if err := r.buildCatalog(); err != nil {
		zr.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) buildCatalog() error {
	var totalUncompressed int64
	var count int64

	for _, f := range r.zr.File {
		count++
		if r.limits.MaxEntries > 0 && count > r.limits.MaxEntries {
			return &LimitExceededError{Which: LimitTooManyEntries}
		}

		totalUncompressed += int64(f.UncompressedSize64)
		if r.limits.MaxTotalUncompressed > 0 && totalUncompressed > r.limits.MaxTotalUncompressed {
			return &LimitExceededError{Which: LimitTotalUncompressedTooLarge}
		}
		if r.limits.MaxEntrySize > 0 && int64(f.UncompressedSize64) > r.limits.MaxEntrySize {
			return &LimitExceededError{Which: LimitEntryTooLarge, Path: f.Name}
		}

		norm, ok := normalizePath(f.Name)
		if !ok {
			// Dropped from the listing, not an error.
			continue
		}

		if isEncrypted(f) {
			return &SecurityError{Kind: "EncryptionNotSupported", Path: norm}
		}

		r.byPath[norm] = f
		r.catalog = append(r.catalog, Entry{
			Path:             norm,
			UncompressedSize: f.UncompressedSize64,
		})
	}
	return nil
}

// normalizePath applies path normalization and rejection rules:
// backslashes become forward slashes, leading slashes are stripped,
// and paths containing ".." components, an embedded NUL, or longer
// than 1024 bytes are rejected.
func normalizePath(name string) (string, bool) {
	norm := strings.ReplaceAll(name, "\\", "/")
	for strings.HasPrefix(norm, "/") {
		norm = norm[1:]
	}
	if len(norm) > maxPathLen {
		return "", false
	}
	if strings.ContainsRune(norm, 0) {
		return "", false
	}
	for _, seg := range strings.Split(norm, "/") {
		if seg == ".." {
			return "", false
		}
	}
	return norm, true
}

// isEncrypted reports whether the general-purpose bit flag's bit 0 is set.
func isEncrypted(f *zip.File) bool {
	return f.Flags&0x1 != 0
}

// Entries returns the catalog built during Open: normalized, accepted
// entries only (suspicious paths were silently dropped).
func (r *Reader) Entries() ([]Entry, error) {
	if r.closed {
		return nil, ErrNotOpen
	}
	out := make([]Entry, len(r.catalog))
	copy(out, r.catalog)
	return out, nil
}

// Has reports whether the normalized path is present in the catalog.
func (r *Reader) Has(path string) (bool, error) {
	if r.closed {
		return false, ErrNotOpen
	}
	norm, ok := normalizePath(path)
	if !ok {
		return false, nil
	}
	_, found := r.byPath[norm]
	return found, nil
}

// Read decompresses the named entry into a contiguous buffer, streaming
// in 512 KiB chunks.
func (r *Reader) Read(path string) ([]byte, error) {
	if r.closed {
		return nil, ErrNotOpen
	}

	norm, ok := normalizePath(path)
	if !ok {
		return nil, &SecurityError{Kind: "SuspiciousPath", Path: path}
	}

	f, found := r.byPath[norm]
	if !found {
		return nil, ErrEntryNotFound
	}

	if r.limits.MaxEntrySize > 0 && int64(f.UncompressedSize64) > r.limits.MaxEntrySize {
		return nil, &LimitExceededError{Which: LimitEntryTooLarge, Path: norm}
	}
	if isEncrypted(f) {
		return nil, &SecurityError{Kind: "EncryptionNotSupported", Path: norm}
	}

	rc, err := f.Open()
	if err != nil {
		return nil, &DecompressionError{Path: norm, Err: err}
	}
	defer rc.Close()

	var buf bytes.Buffer
	buf.Grow(int(f.UncompressedSize64))
	chunk := make([]byte, chunkSize)
	for {
		n, err := rc.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DecompressionError{Path: norm, Err: err}
		}
	}
	return buf.Bytes(), nil
}

// Close releases the underlying Zip file handle. Safe to call more than
// once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.zr != nil {
		return r.zr.Close()
	}
	return nil
}
