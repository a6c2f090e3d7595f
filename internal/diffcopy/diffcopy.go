// Package diffcopy implements Diff Copy (spec §4.8): a content-preserving
// copy of a regular file that writes only the chunks that differ from the
// destination, hashing both sides in parallel within the loop body.
package diffcopy

import (
	"context"
	"errors"
	"hash/adler32"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/kimono-koans/httm/internal/config"
	"github.com/kimono-koans/httm/internal/herr"
	"github.com/kimono-koans/httm/internal/i18n"
)

// Copy performs diff_copy(src, dst) (spec §4.8). dst is created if it does
// not exist; its length is set to src's length up front, then only the
// chunks whose Adler-32 checksum differs from src's are rewritten.
func Copy(ctx context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return herr.Wrap(herr.Other, err, i18n.G("diff-copy: opening %q"), src)
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return herr.Wrap(herr.Other, err, i18n.G("diff-copy: stat %q"), src)
	}

	isNew := false
	if _, err := os.Stat(dst); err != nil {
		isNew = true
	}

	out, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE, srcInfo.Mode().Perm())
	if err != nil {
		return herr.Wrap(herr.Other, err, i18n.G("diff-copy: opening %q"), dst)
	}
	defer out.Close()

	if err := out.Truncate(srcInfo.Size()); err != nil {
		return herr.Wrap(herr.Other, err, i18n.G("diff-copy: sizing %q"), dst)
	}

	srcBuf := make([]byte, config.DiffCopyChunkSize)
	dstBuf := make([]byte, config.DiffCopyChunkSize)

	var offset int64
	for {
		n, readErr := readChunk(in, srcBuf)
		if n == 0 && readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return herr.Wrap(herr.Other, readErr, i18n.G("diff-copy: reading %q"), src)
		}

		dn, _ := readChunkAt(out, dstBuf[:n], offset)

		srcSum, dstSum := hashChunks(ctx, srcBuf[:n], dstBuf[:dn])

		if isNew || srcSum != dstSum || dn != n {
			if _, err := out.WriteAt(srcBuf[:n], offset); err != nil {
				return herr.Wrap(herr.Other, err, i18n.G("diff-copy: writing %q"), dst)
			}
		}

		offset += int64(n)

		if n < len(srcBuf) {
			break
		}
	}

	if offset != srcInfo.Size() {
		return herr.New(herr.Other, i18n.G("diff-copy: copied %d bytes, expected %d"), offset, srcInfo.Size())
	}

	if err := out.Sync(); err != nil {
		return herr.Wrap(herr.Other, err, i18n.G("diff-copy: fsync %q"), dst)
	}

	finalInfo, err := out.Stat()
	if err != nil {
		return herr.Wrap(herr.Other, err, i18n.G("diff-copy: final stat %q"), dst)
	}
	if finalInfo.Size() != srcInfo.Size() {
		return herr.New(herr.MetadataMismatch, i18n.G("diff-copy: %q ended at size %d, expected %d"), dst, finalInfo.Size(), srcInfo.Size())
	}

	return nil
}

func readChunk(f *os.File, buf []byte) (int, error) {
	n, err := io.ReadFull(f, buf)
	if err != nil && (errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)) {
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	}
	return n, err
}

func readChunkAt(f *os.File, buf []byte, offset int64) (int, error) {
	n, err := f.ReadAt(buf, offset)
	if err != nil && errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

// hashChunks computes the Adler-32 checksum of both chunks in parallel
// (spec §5: "hashes its two input chunks in parallel within the loop body").
func hashChunks(ctx context.Context, srcChunk, dstChunk []byte) (uint32, uint32) {
	var srcSum, dstSum uint32
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		srcSum = adler32.Checksum(srcChunk)
		return nil
	})
	g.Go(func() error {
		dstSum = adler32.Checksum(dstChunk)
		return nil
	})
	_ = g.Wait()
	return srcSum, dstSum
}
