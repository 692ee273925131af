// Package sharedstrings parses the optional xl/sharedStrings.xml part
// into indexable string storage that either lives in memory or spills to
// a temporary disk file once the pool grows past a configured threshold.
package sharedstrings

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"

	"github.com/arvonova/xlsxflat/opc"
)

// Mode selects where string data is stored.
type Mode int

const (
	// Auto estimates the pool's size from the raw part length and
	// switches to External once it exceeds Threshold.
	Auto Mode = iota
	InMemory
	External
)

// Config controls parsing and storage behavior.
type Config struct {
	Mode            Mode
	Threshold       int64 // bytes; Auto-mode switch point, default 64 MiB
	MaxStringLength int64 // per-string truncation cap, default 1 MiB
	FlattenRichText bool  // default true
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Mode:            Auto,
		Threshold:       64 * 1024 * 1024,
		MaxStringLength: 1024 * 1024,
		FlattenRichText: true,
	}
}

// Provider is the parsed shared-string pool.
type Provider struct {
	store      stringStore
	resolved   Mode // InMemory or External, never Auto
	n          int
}

// Empty returns a Provider with zero entries, used when the shared
// strings part is absent or fails to parse: every SharedString
// reference then resolves to empty.
func Empty() *Provider {
	return &Provider{store: newArenaStore(), resolved: InMemory}
}

type sstXML struct {
	XMLName     xml.Name `xml:"sst"`
	Count       string   `xml:"count,attr"`
	UniqueCount string   `xml:"uniqueCount,attr"`
}

const (
	elSST = "sst"
	elSI  = "si"
	elT   = "t"
	elR   = "r"
)

// Parse decodes the shared-strings part located at ssPart.
func Parse(pkg *opc.Package, ssPart string, cfg Config) (*Provider, error) {
	data, err := pkg.Archive().Read(ssPart)
	if err != nil {
		return nil, err
	}

	resolved := cfg.Mode
	if resolved == Auto {
		if int64(len(data)) > cfg.Threshold {
			resolved = External
		} else {
			resolved = InMemory
		}
	}

	var store stringStore
	if resolved == External {
		s, err := newSpillStore()
		if err != nil {
			return nil, err
		}
		store = s
	} else {
		store = newArenaStore()
	}

	if count, uniqueCount := parseCountHint(data); uniqueCount > 0 {
		store.reserve(uniqueCount)
	} else if count > 0 {
		store.reserve(count)
	}

	p := &Provider{store: store, resolved: resolved}
	if err := p.decode(data, cfg); err != nil {
		store.close()
		return nil, &InvalidXMLError{Part: ssPart, Err: err}
	}
	return p, nil
}

func (p *Provider) decode(data []byte, cfg Config) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	var (
		current   []byte
		inT       bool
		inR       int
		sawEntry  bool
	)

	flushEntry := func() {
		s := string(current)
		if cfg.MaxStringLength > 0 && int64(len(s)) > cfg.MaxStringLength {
			s = truncateUTF8(s, int(cfg.MaxStringLength))
		}
		p.store.append(s)
		p.n++
		current = current[:0]
		sawEntry = false
	}

	for {
		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case elSI:
				current = current[:0]
				sawEntry = true
			case elT:
				inT = true
			case elR:
				inR++
			}
		case xml.EndElement:
			switch t.Name.Local {
			case elSI:
				if sawEntry {
					flushEntry()
				}
			case elT:
				inT = false
			case elR:
				if inR > 0 {
					inR--
				}
			}
		case xml.CharData:
			if inT && (cfg.FlattenRichText || inR == 0) {
				current = append(current, t...)
			}
		}
	}
	return nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a multi-byte
// rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isUTF8Boundary(s[n]) {
		n--
	}
	return s[:n]
}

func isUTF8Boundary(b byte) bool {
	return b&0xC0 != 0x80
}

// Get returns the string at index i, failing if out of range.
func (p *Provider) Get(i int) (string, error) {
	s, ok := p.store.get(i)
	if !ok {
		return "", &IndexOutOfRangeError{Index: i, Count: p.n}
	}
	return s, nil
}

// TryGet returns the string at index i, or empty if out of range.
func (p *Provider) TryGet(i int) string {
	s, _ := p.store.get(i)
	return s
}

// Count returns the number of parsed entries.
func (p *Provider) Count() int { return p.n }

// ActiveMode returns the resolved storage mode (never Auto).
func (p *Provider) ActiveMode() Mode { return p.resolved }

// Close releases the provider's storage, removing any spill file.
func (p *Provider) Close() error {
	if p.store == nil {
		return nil
	}
	err := p.store.close()
	p.store = nil
	return err
}

// parseCountHint reads the sst element's count/uniqueCount attributes,
// which Parse uses to presize the store's offset table; a missing or
// unparseable attribute yields 0. The stores still grow on append when
// the hint is absent or too small.
func parseCountHint(data []byte) (count, uniqueCount int) {
	var sst sstXML
	if xml.Unmarshal(data, &sst) != nil {
		return 0, 0
	}
	count, _ = strconv.Atoi(sst.Count)
	uniqueCount, _ = strconv.Atoi(sst.UniqueCount)
	return count, uniqueCount
}
