// Package preserve implements Preserve & Remove (spec §4.9): copying
// metadata from a restored source onto its destination, reconstructing
// special files the core chooses to support, and recursively removing a
// tree depth-first.
package preserve

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/pkg/xattr"
	"golang.org/x/sys/unix"

	"github.com/kimono-koans/httm/internal/herr"
	"github.com/kimono-koans/httm/internal/i18n"
	"github.com/kimono-koans/httm/internal/log"
)

// aclXattrs are the extended attribute names POSIX ACLs are stored under,
// so they ride along with the generic xattr copy step (spec §4.9: "ACLs
// (if supported, best-effort)").
var aclXattrs = []string{"system.posix_acl_access", "system.posix_acl_default"}

// Preserve copies src's metadata onto dst in the order spec §4.9 fixes:
// permissions, ACLs, ownership, extended attributes, timestamps, fsync.
func Preserve(ctx context.Context, src, dst string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return herr.Wrap(herr.Other, err, i18n.G("preserve: stat %q"), src)
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		return nil
	}

	failed := preserveAll(ctx, src, dst, fi)
	if failed == nil {
		return nil
	}

	if runtime.GOOS == "darwin" {
		if sizeAndMtimeMatch(src, dst, fi) {
			log.Warningf(ctx, i18n.G("preserve: metadata mismatch on %q downgraded to warning after size+mtime check passed: %v"), dst, failed)
			return nil
		}
	}
	return failed
}

func preserveAll(ctx context.Context, src, dst string, fi os.FileInfo) error {
	if err := os.Chmod(dst, fi.Mode().Perm()); err != nil {
		return herr.Wrap(herr.Other, err, i18n.G("preserve: chmod %q"), dst)
	}

	copyACLs(ctx, src, dst)

	if st, ok := fi.Sys().(*unix.Stat_t); ok {
		if err := unix.Chown(dst, int(st.Uid), int(st.Gid)); err != nil {
			return herr.Wrap(herr.Other, err, i18n.G("preserve: chown %q"), dst)
		}
	}

	if err := copyXattrs(src, dst); err != nil {
		return herr.Wrap(herr.Other, err, i18n.G("preserve: xattrs %q"), dst)
	}

	atime := time.Now()
	if st, ok := fi.Sys().(*unix.Stat_t); ok {
		atime = time.Unix(st.Atim.Sec, st.Atim.Nsec)
	}
	if err := os.Chtimes(dst, atime, fi.ModTime()); err != nil {
		return herr.Wrap(herr.Other, err, i18n.G("preserve: timestamps %q"), dst)
	}

	if err := fsync(dst); err != nil {
		return herr.Wrap(herr.Other, err, i18n.G("preserve: fsync %q"), dst)
	}

	return nil
}

// copyACLs is best-effort (spec §4.9): a platform or filesystem lacking
// POSIX ACL xattr support should not fail the whole preserve step.
func copyACLs(ctx context.Context, src, dst string) {
	for _, name := range aclXattrs {
		v, err := xattr.Get(src, name)
		if err != nil {
			continue
		}
		if err := xattr.Set(dst, name, v); err != nil {
			log.Debugf(ctx, i18n.G("preserve: acl xattr %q on %q: %v"), name, dst, err)
		}
	}
}

func copyXattrs(src, dst string) error {
	names, err := xattr.List(src)
	if err != nil {
		return nil
	}
	for _, name := range names {
		v, err := xattr.Get(src, name)
		if err != nil {
			continue
		}
		if err := xattr.Set(dst, name, v); err != nil {
			return err
		}
	}
	return nil
}

func sizeAndMtimeMatch(src, dst string, srcInfo os.FileInfo) bool {
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return false
	}
	return dstInfo.Size() == srcInfo.Size() && dstInfo.ModTime().Equal(srcInfo.ModTime())
}

func fsync(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// ReconstructSpecial handles a non-regular, non-directory source file
// (spec §4.9 special-file table): symlinks are recreated with the same
// target, devices via mknod, FIFOs via mkfifo, and sockets are skipped with
// a warning. Any other source, regular files and directories included,
// fails with UnsupportedFileType.
func ReconstructSpecial(ctx context.Context, src, dst string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return herr.Wrap(herr.Other, err, i18n.G("preserve: stat %q"), src)
	}

	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return herr.Wrap(herr.Other, err, i18n.G("preserve: readlink %q"), src)
		}
		_ = os.Remove(dst)
		if err := os.Symlink(target, dst); err != nil {
			return herr.Wrap(herr.Other, err, i18n.G("preserve: symlink %q"), dst)
		}
		return nil

	case fi.Mode()&os.ModeDevice != 0:
		st, ok := fi.Sys().(*unix.Stat_t)
		if !ok {
			return herr.New(herr.UnsupportedFileType, i18n.G("preserve: can't read device identifier for %q"), src)
		}
		mode := uint32(fi.Mode().Perm())
		if fi.Mode()&os.ModeCharDevice != 0 {
			mode |= unix.S_IFCHR
		} else {
			mode |= unix.S_IFBLK
		}
		_ = os.Remove(dst)
		if err := unix.Mknod(dst, mode, int(st.Rdev)); err != nil {
			return herr.Wrap(herr.Other, err, i18n.G("preserve: mknod %q"), dst)
		}
		return nil

	case fi.Mode()&os.ModeNamedPipe != 0:
		_ = os.Remove(dst)
		if err := unix.Mkfifo(dst, uint32(fi.Mode().Perm())); err != nil {
			return herr.Wrap(herr.Other, err, i18n.G("preserve: mkfifo %q"), dst)
		}
		return nil

	case fi.Mode()&os.ModeSocket != 0:
		log.Warningf(ctx, i18n.G("preserve: %q is a socket, skipping"), src)
		return nil

	default:
		return herr.New(herr.UnsupportedFileType, i18n.G("preserve: %q is not a reproducible file type"), src)
	}
}

// Remove deletes path recursively, depth-first: directory contents before
// the directory itself (spec §4.9).
func Remove(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return herr.Wrap(herr.Other, err, i18n.G("remove: stat %q"), path)
	}

	if !fi.IsDir() {
		if err := os.Remove(path); err != nil {
			return herr.Wrap(herr.Other, err, i18n.G("remove: %q"), path)
		}
		return nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return herr.Wrap(herr.Other, err, i18n.G("remove: reading dir %q"), path)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if err := Remove(filepath.Join(path, name)); err != nil {
			return err
		}
	}

	if err := os.Remove(path); err != nil {
		return herr.Wrap(herr.Other, err, i18n.G("remove: %q"), path)
	}
	return nil
}
