package scanner

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func paths(targets []Target) []string {
	out := make([]string, 0, len(targets))
	for _, tg := range targets {
		out = append(out, tg.Path)
	}
	return out
}

func TestTargetsSingleFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	f := filepath.Join(dir, "sample.txt")
	writeFile(t, f, "x")

	targets, err := Targets(f, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{f}, paths(targets))
}

func TestTargetsWalksNestedDirectories(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	writeFile(t, filepath.Join(root, "a", "a.log"), "a")
	writeFile(t, filepath.Join(root, "a", "deep", "deeper", "c.bin"), "c")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	targets, err := Targets(root, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a", "a.log"),
		filepath.Join(root, "a", "deep", "deeper", "c.bin"),
		filepath.Join(root, "b.txt"),
	}, paths(targets))
	for _, tg := range targets {
		assert.Nil(t, tg.Err)
	}
}

func TestTargetsFollowsFileSymlinksOnly(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	t.Parallel()
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "real.txt"), "r")
	writeFile(t, filepath.Join(outside, "sub", "hidden.txt"), "h")
	require.NoError(t, os.Symlink(filepath.Join(outside, "real.txt"), filepath.Join(root, "link.txt")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "sub"), filepath.Join(root, "linkdir")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "gone.txt"), filepath.Join(root, "dangling")))

	targets, err := Targets(root, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "link.txt")}, paths(targets))
}

func TestTargetsMissingRootIsAnErrorEntry(t *testing.T) {
	t.Parallel()
	missing := filepath.Join(t.TempDir(), "nope")

	targets, err := Targets(missing, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, missing, targets[0].Path)
	require.NotNil(t, targets[0].Err)
	assert.Equal(t, NotFound, targets[0].Err.Kind)
	assert.ErrorIs(t, targets[0].Err, os.ErrNotExist)
}

func TestTargetsSkipsUnreadableSubdirectories(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("file modes are not enforced for this user")
	}
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "locked", "inner.txt"), "i")
	writeFile(t, filepath.Join(root, "z.txt"), "z")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	var logs bytes.Buffer
	targets, err := Targets(root, zerolog.New(&logs))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.txt"), filepath.Join(root, "z.txt")}, paths(targets))
	for _, tg := range targets {
		assert.Nil(t, tg.Err)
	}
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), locked)
}

func TestReadText(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	plain := filepath.Join(dir, "plain.txt")
	writeFile(t, plain, "http://evil.com/a")
	text, err := ReadText(plain, 1)
	require.NoError(t, err)
	assert.Equal(t, "http://evil.com/a", text)

	mixed := filepath.Join(dir, "mixed.bin")
	writeFile(t, mixed, "evil.com\xff\xfe 10.0.0.1")
	text, err = ReadText(mixed, 1)
	require.NoError(t, err)
	assert.Equal(t, "evil.com� 10.0.0.1", text)
}

func TestReadTextDecodeTolerance(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	bin := filepath.Join(dir, "blob.bin")
	writeFile(t, bin, "ab\xff\xff\xff\xff\xff\xff\xff\xff")

	_, err := ReadText(bin, 0.5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecodeFailure)

	var fe *FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, DecodeFailure, fe.Kind)
	assert.Equal(t, bin, fe.Path)

	_, err = ReadText(bin, 1)
	assert.NoError(t, err)
}

func TestReadTextClassifiesErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := ReadText(filepath.Join(dir, "vanished.txt"), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = ReadText(dir, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOther)
}

func TestReadTextPermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("file modes are not enforced for this user")
	}
	t.Parallel()
	f := filepath.Join(t.TempDir(), "locked.txt")
	writeFile(t, f, "secret")
	require.NoError(t, os.Chmod(f, 0o000))

	_, err := ReadText(f, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestAsFileError(t *testing.T) {
	t.Parallel()
	assert.Nil(t, AsFileError("x", nil))

	fe := AsFileError("x", errors.New("boom"))
	assert.Equal(t, Other, fe.Kind)
	assert.Equal(t, "boom", fe.Error())
	assert.Same(t, fe, AsFileError("y", fe))
}
