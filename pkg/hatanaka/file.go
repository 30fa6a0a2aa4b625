package hatanaka

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/de-bkg/hatanaka/pkg/rinex"
	"github.com/mholt/archiver/v3"
)

// Output names for files without a standard RINEX name.
const (
	defaultRnxName = "output.rnx"
	defaultCrxName = "output.crx"
)

// codecFunc is Compress or Decompress.
type codecFunc func(context.Context, io.Reader, io.Writer, Options) (Stats, error)

// Crx2rnx decompresses a Compact RINEX file and returns the RINEX obs filename.
// The RINEX file is written into the directory of crxFilename, its name follows the RINEX naming conventions.
// A file that is not Hatanaka compressed is returned unchanged.
func Crx2rnx(ctx context.Context, crxFilename string, opts Options) (string, error) {
	if !rinex.IsHatanakaCompressed(crxFilename) {
		return crxFilename, nil
	}
	rnxFilePath := RinexName(crxFilename)
	if _, err := DecompressFile(ctx, crxFilename, rnxFilePath, opts); err != nil {
		return "", fmt.Errorf("crx2rnx: %w", err)
	}
	return rnxFilePath, nil
}

// Rnx2crx Hatanaka compresses a RINEX obs file and returns the Compact RINEX filename.
// A file that is already Hatanaka compressed is returned unchanged.
func Rnx2crx(ctx context.Context, rnxFilename string, opts Options) (string, error) {
	if rinex.IsHatanakaCompressed(rnxFilename) {
		return rnxFilename, nil
	}
	crxFilePath := CompactName(rnxFilename)
	if _, err := CompressFile(ctx, rnxFilename, crxFilePath, opts); err != nil {
		return "", fmt.Errorf("rnx2crx: %w", err)
	}
	return crxFilePath, nil
}

// RinexName returns the name of the RINEX obs file for the Compact RINEX file crxFilename.
// Files without a standard name are decompressed to output.rnx in the same directory.
func RinexName(crxFilename string) string {
	name, err := rinex.ObsFilename(crxFilename)
	if err != nil {
		return filepath.Join(filepath.Dir(crxFilename), defaultRnxName)
	}
	return name
}

// CompactName returns the name of the Compact RINEX file for the RINEX obs file rnxFilename, see RinexName.
func CompactName(rnxFilename string) string {
	name, err := rinex.CompactFilename(rnxFilename)
	if err != nil {
		return filepath.Join(filepath.Dir(rnxFilename), defaultCrxName)
	}
	return name
}

// DecompressFile decompresses the Compact RINEX file src to dst.
// An archived src like "*.crx.gz" is uncompressed on the fly. dst is gzipped if it ends with ".gz" or opts.Gzip is set.
// dst is only created if the decompression succeeds.
func DecompressFile(ctx context.Context, src, dst string, opts Options) (Stats, error) {
	return convertFile(ctx, src, dst, opts, Decompress)
}

// CompressFile Hatanaka compresses the RINEX obs file src to dst, see DecompressFile.
func CompressFile(ctx context.Context, src, dst string, opts Options) (Stats, error) {
	return convertFile(ctx, src, dst, opts, Compress)
}

// DecompressTo decompresses the Compact RINEX data read from r to the file dst, see DecompressFile.
func DecompressTo(ctx context.Context, r io.Reader, dst string, opts Options) (Stats, error) {
	return writeOutput(ctx, r, dst, opts, Decompress)
}

// CompressTo Hatanaka compresses the RINEX obs data read from r to the file dst, see DecompressFile.
func CompressTo(ctx context.Context, r io.Reader, dst string, opts Options) (Stats, error) {
	return writeOutput(ctx, r, dst, opts, Compress)
}

func convertFile(ctx context.Context, src, dst string, opts Options, conv codecFunc) (Stats, error) {
	in, err := os.Open(src)
	if err != nil {
		return Stats{}, err
	}
	defer in.Close()

	r, closeIn := NewArchiveReader(src, in)
	defer closeIn()

	stats, err := writeOutput(ctx, r, dst, opts, conv)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", src, err)
	}
	return stats, nil
}

// checkDst returns an error if dst exists and opts.Force is not set.
func checkDst(dst string, opts Options) error {
	if opts.Force {
		return nil
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%s: %w (use force to overwrite)", dst, os.ErrExist)
	}
	return nil
}

// writeOutput runs conv into a temporary file that is renamed to dst on success.
func writeOutput(ctx context.Context, r io.Reader, dst string, opts Options, conv codecFunc) (stats Stats, err error) {
	if err := checkDst(dst, opts); err != nil {
		return stats, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return stats, err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if opts.Gzip || strings.EqualFold(filepath.Ext(dst), ".gz") {
		stats, err = convertGzip(ctx, r, tmp, opts, conv)
	} else {
		stats, err = conv(ctx, r, tmp, opts)
	}
	if err != nil {
		return stats, err
	}
	if err = tmp.Close(); err != nil {
		return stats, err
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return stats, err
	}
	opts.logger().Debug("file written", "file", dst, "epochs", stats.Epochs)
	return stats, nil
}

// convertGzip runs conv and gzips its output to w.
func convertGzip(ctx context.Context, r io.Reader, w io.Writer, opts Options, conv codecFunc) (Stats, error) {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := archiver.NewGz().Compress(pr, w)
		pr.CloseWithError(err)
		done <- err
	}()

	stats, err := conv(ctx, r, pw, opts)
	pw.CloseWithError(err)
	if gzErr := <-done; err == nil {
		err = gzErr
	}
	return stats, err
}

// NewArchiveReader returns a reader for the uncompressed content of r if name has the extension of a
// compression format known by archiver, e.g. ".gz", ".bz2", ".xz" or ".zst". Otherwise r is returned.
// The returned function releases the resources and must be called when done.
func NewArchiveReader(name string, r io.Reader) (io.Reader, func()) {
	format, err := archiver.ByExtension(name)
	if err != nil {
		return r, func() {}
	}
	dec, ok := format.(archiver.Decompressor)
	if !ok {
		return r, func() {}
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(dec.Decompress(r, pw))
	}()
	return pr, func() { pr.Close() }
}
