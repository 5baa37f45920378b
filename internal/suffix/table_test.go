package suffix

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/publicsuffix"
)

const testList = `// comment lines and blanks are ignored

com
uk
co.uk
jp
kawasaki.jp
*.kawasaki.jp
!city.kawasaki.jp
*.ck
!www.ck
公司.cn
cn
py   trailing text after the first field is ignored

// ===BEGIN PRIVATE DOMAINS===
github.io
blogspot.com
// ===END PRIVATE DOMAINS===
`

func mustParse(t *testing.T, opts Options) *Table {
	t.Helper()
	tbl, err := Parse(strings.NewReader(testList), opts)
	require.NoError(t, err)
	return tbl
}

func TestParseCountsRules(t *testing.T) {
	t.Parallel()
	tbl := mustParse(t, Options{})
	assert.Equal(t, 14, tbl.Len())
	assert.False(t, tbl.IncludesPrivate())
}

func TestTableMatch(t *testing.T) {
	t.Parallel()
	tbl := mustParse(t, Options{})

	testCases := []struct {
		name   string
		host   string
		suffix string
		ok     bool
	}{
		{"plain tld", "example.com", "com", true},
		{"longest plain wins", "www.example.co.uk", "co.uk", true},
		{"bare suffix", "co.uk", "co.uk", true},
		{"wildcard", "a.b.kawasaki.jp", "b.kawasaki.jp", true},
		{"exception beats wildcard", "www.city.kawasaki.jp", "kawasaki.jp", true},
		{"exception host itself", "city.kawasaki.jp", "kawasaki.jp", true},
		{"wildcard only tld", "foo.bar.ck", "bar.ck", true},
		{"wildcard exception", "www.ck", "ck", true},
		{"idn rule in punycode", "shop.xn--55qx5d.cn", "xn--55qx5d.cn", true},
		{"unknown tld", "example.invalidtld", "", false},
		{"private excluded", "user.github.io", "io", false},
		{"private parent still public", "foo.blogspot.com", "com", true},
		{"empty", "", "", false},
		{"empty label before wildcard", ".ck", "", false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			start, ok := tbl.Match(tc.host)
			require.Equal(t, tc.ok, ok, "Match(%q)", tc.host)
			if ok {
				assert.Equal(t, tc.suffix, tc.host[start:])
			}
		})
	}
}

func TestTableMatchIncludePrivate(t *testing.T) {
	t.Parallel()
	tbl := mustParse(t, Options{IncludePrivate: true})

	start, ok := tbl.Match("user.github.io")
	require.True(t, ok)
	assert.Equal(t, "github.io", "user.github.io"[start:])

	start, ok = tbl.Match("foo.blogspot.com")
	require.True(t, ok)
	assert.Equal(t, "blogspot.com", "foo.blogspot.com"[start:])
}

func TestParseRejectsCorruptData(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader("// only comments\n\n"), Options{})
	assert.ErrorIs(t, err, ErrEmptyDataset)

	for _, bad := range []string{"*.", "!", "a.*.b", "a..b", "!ck"} {
		_, err := Parse(strings.NewReader("com\n"+bad+"\n"), Options{})
		assert.ErrorIs(t, err, ErrMalformedRule, "rule %q", bad)
		assert.Contains(t, err.Error(), "line 2")
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "list.dat")
	require.NoError(t, os.WriteFile(path, []byte(testList), 0o644))

	tbl, err := LoadFile(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 14, tbl.Len())

	_, err = LoadFile(filepath.Join(dir, "missing.dat"), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadEmbedded(t *testing.T) {
	t.Parallel()
	tbl, err := LoadEmbedded(Options{})
	require.NoError(t, err)
	assert.Greater(t, tbl.Len(), 5000)

	for _, tld := range DefaultNoiseDenylist {
		start, ok := tbl.Match("x." + tld)
		require.True(t, ok, "bundled list should know %q", tld)
		assert.Equal(t, tld, ("x." + tld)[start:])
	}
}

// The bundled dataset should agree with the x/net table on ICANN names.
func TestEmbeddedAgreesWithXNetPublicSuffix(t *testing.T) {
	t.Parallel()
	tbl, err := LoadEmbedded(Options{})
	require.NoError(t, err)

	hosts := []string{
		"example.com",
		"www.example.co.uk",
		"shop.example.com.au",
		"a.b.kawasaki.jp",
		"www.city.kawasaki.jp",
		"foo.bar.ck",
		"www.ck",
		"example.org",
		"mail.example.de",
	}
	for _, h := range hosts {
		want, icann := publicsuffix.PublicSuffix(h)
		require.True(t, icann, "%s should resolve under an ICANN rule", h)
		start, ok := tbl.Match(h)
		require.True(t, ok, "Match(%q)", h)
		assert.Equal(t, want, h[start:], "suffix of %q", h)
	}
}

func BenchmarkTableMatch(b *testing.B) {
	tbl, err := LoadEmbedded(Options{})
	if err != nil {
		b.Fatalf("LoadEmbedded: %v", err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = tbl.Match("cdn.assets.example.co.uk")
	}
}
