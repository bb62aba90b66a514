package crazyflie

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// cacheElement is the on-disk JSON shape of one TocElement. Grounded on
// original_source/logtoc.h's read/write(path) pair.
type cacheElement struct {
	Ident      uint16 `json:"ident"`
	Group      string `json:"group"`
	Name       string `json:"name"`
	CType      byte   `json:"ctype"`
	ReadOnly   bool   `json:"read_only"`
	Persistent bool   `json:"persistent"`
}

type cacheFile struct {
	CRC      uint32         `json:"crc"`
	Elements []cacheElement `json:"elements"`
}

// tocCachePath builds <dir>/TocCache/<CRC32-hex-8-upper>_toc.json,
// mirroring logtoc.h's getfullTocPath.
func tocCachePath(dir string, crc uint32) string {
	return filepath.Join(dir, "TocCache", fmt.Sprintf("%08X_toc.json", crc))
}

// loadTocCache attempts to load a cached Toc for crc from dir. A missing
// file or any decode error is treated as a cache miss (ok=false), never an
// error — per DESIGN.md's open question 2, malformed cache contents always
// fall back to a full re-download rather than lax partial parsing.
func loadTocCache(dir string, crc uint32) (*Toc, bool) {
	path := tocCachePath(dir, crc)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var cf cacheFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return nil, false
	}
	if cf.CRC != crc {
		return nil, false
	}

	toc := NewToc()
	toc.CRC = crc
	for _, ce := range cf.Elements {
		toc.AddElement(TocElement{
			Ident:      ce.Ident,
			Group:      ce.Group,
			Name:       ce.Name,
			CType:      ce.CType,
			ReadOnly:   ce.ReadOnly,
			Persistent: ce.Persistent,
		})
	}
	toc.MarkComplete()
	return toc, true
}

// saveTocCache writes toc to dir, creating the TocCache subdirectory if
// needed. Failures are reported as CacheIOError; they never abort the
// caller's connection sequence (a cache write failure just means the next
// connect re-downloads).
func saveTocCache(dir string, toc *Toc) error {
	path := tocCachePath(dir, toc.CRC)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &CacheIOError{Path: path, Err: err}
	}

	cf := cacheFile{CRC: toc.CRC}
	for _, e := range toc.Elements() {
		cf.Elements = append(cf.Elements, cacheElement{
			Ident:      e.Ident,
			Group:      e.Group,
			Name:       e.Name,
			CType:      e.CType,
			ReadOnly:   e.ReadOnly,
			Persistent: e.Persistent,
		})
	}

	raw, err := json.Marshal(cf)
	if err != nil {
		return &CacheIOError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return &CacheIOError{Path: path, Err: err}
	}
	return nil
}
