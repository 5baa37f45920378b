package ioc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLMatcher(t *testing.T) {
	t.Parallel()
	m := URLMatcher()
	require.Equal(t, URL, m.Kind())

	testCases := []struct {
		name string
		text string
		want []string
	}{
		{"path", "Visit http://evil.com/path and more", []string{"http://evil.com/path"}},
		{"https with port", "GET https://c2.example.net:8443/gate.php?id=1 HTTP/1.1", []string{"https://c2.example.net:8443/gate.php?id=1"}},
		{"ftp upper scheme", "FTP://files.example.org/drop.bin", []string{"FTP://files.example.org/drop.bin"}},
		{"stops at quote", `href="http://evil.com/a"`, []string{"http://evil.com/a"}},
		{"stops at paren", "(see http://evil.com/x)", []string{"http://evil.com/x"}},
		{"stops at angle", "<http://evil.com/y>", []string{"http://evil.com/y"}},
		{"no path", "http://evil.com", []string{"http://evil.com"}},
		{"ip host has no alpha segment", "http://10.0.0.1/x", nil},
		{"other scheme", "ssh://evil.com", nil},
		{"two urls", "http://a.com http://b.org/z", []string{"http://a.com", "http://b.org/z"}},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, m.Match(tc.text))
		})
	}
}

func TestIPv4Matcher(t *testing.T) {
	t.Parallel()
	m := IPv4Matcher()

	assert.Equal(t, []string{"10.0.0.5"}, m.Match("beacon to 10.0.0.5 every 60s"))
	// Octets are deliberately not range checked.
	assert.Equal(t, []string{"999.999.999.999"}, m.Match("999.999.999.999"))
	assert.Equal(t, []string{"1.2.3.4", "1.2.3.4"}, m.Match("1.2.3.4,1.2.3.4"))
	assert.Empty(t, m.Match("version 1.2.3 only"))
	assert.Empty(t, m.Match("1234.1.1.1"))
}

func TestHostMatcher(t *testing.T) {
	t.Parallel()
	m := HostMatcher()
	require.Equal(t, Domain, m.Kind())

	got := m.Match("Visit http://evil.com/path and 10.0.0.5 also foo.py bar.read end.")
	assert.Equal(t, []string{"evil.com", "foo.py", "bar.read"}, got)

	// The final label must be lower-case; case is otherwise kept.
	assert.Equal(t, []string{"Example.com"}, m.Match("Example.com EXAMPLE.COM"))
	assert.Equal(t, []string{"cdn-1.assets.example.co.uk"}, m.Match("load cdn-1.assets.example.co.uk now"))
}

func TestMatcherFor(t *testing.T) {
	t.Parallel()
	for _, k := range AllKinds {
		m := MatcherFor(k)
		require.NotNil(t, m)
		assert.Equal(t, k, m.Kind())
	}
	assert.Nil(t, MatcherFor(Kind("hashes")))
}

func TestKinds(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "[URLS]", URL.Header())
	assert.Equal(t, "[DOMAINS]", Domain.Header())
	assert.Equal(t, "[IPS]", IP.Header())

	assert.Equal(t, []Kind{URL, IP}, Canonical([]Kind{IP, URL, IP}))

	s := Set{}
	s.Add("b")
	s.Add("a")
	s.Add("b")
	assert.Equal(t, []string{"a", "b"}, s.Sorted())
}
