// Package pathdata implements the PathData handle (spec §3): an absolute
// path plus lazily materialized metadata, used interchangeably for live
// paths and snapshot candidates throughout the Versions and Deleted
// engines.
package pathdata

import (
	"os"
	"strings"
	"time"
)

// Metadata is the lazily materialized state of a PathData: its modification
// time, size, and (where the platform exposes one) inode number. A
// PathData whose live path does not exist has no Metadata: it is a
// "phantom" (spec §3, Glossary).
type Metadata struct {
	ModTime time.Time
	Size    int64
	Inode   uint64
}

// Key is the (mtime_nanos, size) identity used by the Versions Engine to
// dedupe candidates recorded in multiple snapshots (spec §4.6 step 4).
type Key struct {
	ModTimeNanos int64
	Size         int64
}

// PathData is the fundamental handle of the engine. Equality is by Path;
// ordering is lexical on Path (spec §3).
type PathData struct {
	Path string

	meta    *Metadata
	statErr error
	stated  bool
}

// New returns a PathData for path without touching the filesystem. Call
// Stat (or Meta) to materialize its metadata lazily.
func New(path string) *PathData {
	return &PathData{Path: path}
}

// NewWithMetadata returns a PathData whose metadata is already known,
// skipping the lazy stat (used when the caller already read a dir entry).
func NewWithMetadata(path string, meta Metadata) *PathData {
	return &PathData{Path: path, meta: &meta, stated: true}
}

// Stat materializes (and caches) the PathData's metadata. It is safe to
// call repeatedly; only the first call touches the filesystem. A PathData
// for a path that does not exist is legal: Stat returns ok=false and no
// error, marking the PathData as phantom.
func (p *PathData) Stat() (meta Metadata, ok bool, err error) {
	if p.stated {
		return p.metaOrZero(), p.meta != nil, p.statErr
	}
	p.stated = true

	fi, err := os.Lstat(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, false, nil
		}
		p.statErr = err
		return Metadata{}, false, err
	}

	m := Metadata{
		ModTime: fi.ModTime(),
		Size:    fi.Size(),
		Inode:   inodeOf(fi),
	}
	p.meta = &m
	return m, true, nil
}

func (p *PathData) metaOrZero() Metadata {
	if p.meta == nil {
		return Metadata{}
	}
	return *p.meta
}

// IsPhantom reports whether the live path behind this PathData has no
// metadata: known only from snapshots (spec §3 Glossary).
func (p *PathData) IsPhantom() bool {
	_, ok, err := p.Stat()
	return !ok && err == nil
}

// Key returns the (mtime, size) dedupe key for this PathData. It assumes
// Stat has already succeeded; callers must check ok from Stat first.
func (p *PathData) Key() Key {
	m := p.metaOrZero()
	return Key{ModTimeNanos: m.ModTime.UnixNano(), Size: m.Size}
}

// Less orders PathData lexically on Path, breaking ties never needed
// since Path is the identity (spec §3: "Equality is by path; ordering is
// lexical on path").
func Less(a, b *PathData) bool {
	return a.Path < b.Path
}

// IsDir reports whether p names a directory. A symlink counts as a
// directory only when it resolves to a directory and its target is either
// relative or shares a common path prefix with the link itself: a guard
// against unbounded traversal through an
// absolute-target symlink pointing outside the tree being walked (spec §9
// Open Question; behavior preserved from the original implementation's
// htm_is_dir, decision recorded in DESIGN.md).
func IsDir(path string) bool {
	fi, err := os.Lstat(path)
	if err != nil {
		return false
	}
	if fi.IsDir() {
		return true
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		return false
	}

	target, err := os.Readlink(path)
	if err != nil {
		return false
	}
	if strings.HasPrefix(target, "/") && !commonPrefix(path, target) {
		return false
	}

	targetInfo, err := os.Stat(path)
	if err != nil {
		return false
	}
	return targetInfo.IsDir()
}

// commonPrefix reports whether path and target share at least their first
// path component.
func commonPrefix(path, target string) bool {
	pc := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)
	tc := strings.SplitN(strings.TrimPrefix(target, "/"), "/", 2)
	if len(pc) == 0 || len(tc) == 0 {
		return false
	}
	return pc[0] == tc[0]
}
