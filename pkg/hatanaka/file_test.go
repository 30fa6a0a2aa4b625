package hatanaka

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, lines []string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(text(lines...)), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestRnx2crx(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	dir := t.TempDir()
	rnxFil := filepath.Join(dir, "BRUX00BEL_R_20213620000_01H_30S_MO.rnx")
	writeFile(t, rnxFil, rinex3())

	crxFil, err := Rnx2crx(ctx, rnxFil, testOptions())
	require.NoError(t, err)
	assert.Equal(filepath.Join(dir, "BRUX00BEL_R_20213620000_01H_30S_MO.crx"), crxFil)
	assert.Equal(text(crinex3()...), readFile(t, crxFil))

	// already compressed
	got, err := Rnx2crx(ctx, crxFil, testOptions())
	assert.NoError(err)
	assert.Equal(crxFil, got)

	// the RINEX file exists
	_, err = Crx2rnx(ctx, crxFil, testOptions())
	assert.ErrorIs(err, os.ErrExist)

	opts := testOptions()
	opts.Force = true
	got, err = Crx2rnx(ctx, crxFil, opts)
	require.NoError(t, err)
	assert.Equal(rnxFil, got)
	assert.Equal(text(rinex3()...), readFile(t, rnxFil))

	// not compressed
	got, err = Crx2rnx(ctx, rnxFil, testOptions())
	assert.NoError(err)
	assert.Equal(rnxFil, got)
}

func TestRnx2crx_rinex2(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	rnxFil := filepath.Join(dir, "brst362a.21o")
	writeFile(t, rnxFil, rinex2())

	crxFil, err := Rnx2crx(context.Background(), rnxFil, testOptions())
	require.NoError(t, err)
	assert.Equal(filepath.Join(dir, "brst362a.21d"), crxFil)

	require.NoError(t, os.Remove(rnxFil))
	got, err := Crx2rnx(context.Background(), crxFil, testOptions())
	require.NoError(t, err)
	assert.Equal(rnxFil, got)
	assert.Equal(text(rinex2()...), readFile(t, rnxFil))
}

func TestRnx2crx_defaultName(t *testing.T) {
	dir := t.TempDir()
	rnxFil := filepath.Join(dir, "obs.txt")
	writeFile(t, rnxFil, rinex3())

	crxFil, err := Rnx2crx(context.Background(), rnxFil, testOptions())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, defaultCrxName), crxFil)

	rnxFil, err = Crx2rnx(context.Background(), crxFil, testOptions())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, defaultRnxName), rnxFil)
	assert.Equal(t, text(rinex3()...), readFile(t, rnxFil))
}

func TestCompressFile_gzip(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	dir := t.TempDir()
	rnxFil := filepath.Join(dir, "BRUX00BEL_R_20213620000_01H_30S_MO.rnx")
	writeFile(t, rnxFil, rinex3())

	gzFil := filepath.Join(dir, "BRUX00BEL_R_20213620000_01H_30S_MO.crx.gz")
	stats, err := CompressFile(ctx, rnxFil, gzFil, testOptions())
	require.NoError(t, err)
	assert.Equal(4, stats.Epochs)
	assert.NotEqual(text(crinex3()...), readFile(t, gzFil))

	outFil := filepath.Join(dir, "out.rnx")
	_, err = DecompressFile(ctx, gzFil, outFil, testOptions())
	require.NoError(t, err)
	assert.Equal(text(rinex3()...), readFile(t, outFil))

	// gzip on both sides
	outGz := filepath.Join(dir, "out.rnx.gz")
	_, err = DecompressFile(ctx, gzFil, outGz, testOptions())
	require.NoError(t, err)
	_, err = CompressFile(ctx, outGz, filepath.Join(dir, "out.crx"), testOptions())
	require.NoError(t, err)
	assert.Equal(text(crinex3()...), readFile(t, filepath.Join(dir, "out.crx")))
}

func TestCompressFile_error(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "in.crx")
	writeFile(t, src, crinex3())

	dst := filepath.Join(dir, "out.crx")
	_, err := CompressFile(context.Background(), src, dst, testOptions())
	assert.ErrorIs(err, ErrAlreadyCompact)
	assert.NoFileExists(dst)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(entries, 1, "temporary file removed")

	_, err = DecompressFile(context.Background(), filepath.Join(dir, "missing.crx"), dst, testOptions())
	assert.ErrorIs(err, os.ErrNotExist)
}

func TestCompressTo(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	opts := testOptions()
	opts.Gzip = true
	crxFil := filepath.Join(dir, "out.crx")
	_, err := CompressTo(ctx, strings.NewReader(text(rinex3()...)), crxFil, opts)
	require.NoError(t, err)
	assert.Equal([]byte{0x1f, 0x8b}, []byte(readFile(t, crxFil))[:2], "gzip magic")

	_, err = CompressTo(ctx, strings.NewReader(text(rinex3()...)), crxFil, opts)
	assert.ErrorIs(err, os.ErrExist)

	rnxFil := filepath.Join(dir, "out.rnx")
	crx := crinex3()
	_, err = DecompressTo(ctx, strings.NewReader(text(crx[:len(crx)-1]...)), rnxFil, testOptions())
	assert.ErrorIs(err, ErrTruncatedStream)
	assert.NoFileExists(rnxFil)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(entries, 1, "temporary file removed")
}
