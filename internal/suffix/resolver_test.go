package suffix

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverResolve(t *testing.T) {
	t.Parallel()
	r := NewResolver(mustParse(t, Options{}), DefaultNoiseDenylist)

	testCases := []struct {
		name   string
		host   string
		want   string
		reason Reject
	}{
		{"registrable domain", "evil.com", "evil.com", Accepted},
		{"subdomain dropped", "cdn.assets.evil.com", "evil.com", Accepted},
		{"multi label suffix", "login.bank.co.uk", "bank.co.uk", Accepted},
		{"wildcard suffix", "x.a.b.kawasaki.jp", "a.b.kawasaki.jp", Accepted},
		{"exception suffix", "www.city.kawasaki.jp", "city.kawasaki.jp", Accepted},
		{"casing preserved", "WWW.Example.COM", "Example.COM", Accepted},
		{"unicode host to punycode", "shop.公司.cn", "shop.xn--55qx5d.cn", Accepted},
		{"unknown tld", "foo.bar", "", NoSuffix},
		{"bare suffix", "co.uk", "", BareSuffix},
		{"empty domain label", "..com", "", BareSuffix},
		{"denylisted suffix", "read.py", "", Denylisted},
		{"denylist is case insensitive", "Read.PY", "", Denylisted},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, reason := r.Explain(tc.host)
			assert.Equal(t, tc.reason, reason)
			got, ok := r.Resolve(tc.host)
			assert.Equal(t, tc.reason == Accepted, ok)
			if ok {
				assert.Equal(t, tc.want, got.String())
				assert.Equal(t, p, got)
				assert.NotEmpty(t, got.Domain)
				assert.False(t, r.Denylisted(got.Suffix))
			}
		})
	}
}

func TestResolverDenylistIsConfigurable(t *testing.T) {
	t.Parallel()
	tbl := mustParse(t, Options{})

	open := NewResolver(tbl, nil)
	p, ok := open.Resolve("read.py")
	require.True(t, ok)
	assert.Equal(t, ParsedHost{Domain: "read", Suffix: "py"}, p)

	strict := NewResolver(tbl, []string{" COM ", ".uk", ""})
	_, ok = strict.Resolve("evil.com")
	assert.False(t, ok)
	_, ok = strict.Resolve("evil.uk")
	assert.False(t, ok)
	// Only the matched suffix is compared, not its parents.
	_, ok = strict.Resolve("evil.co.uk")
	assert.True(t, ok)
}

func TestResolverConcurrentUse(t *testing.T) {
	t.Parallel()
	r := NewResolver(mustParse(t, Options{}), DefaultNoiseDenylist)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				p, ok := r.Resolve("a.evil.co.uk")
				if !ok || p.String() != "evil.co.uk" {
					t.Errorf("Resolve = %v, %v", p, ok)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkResolve(b *testing.B) {
	tbl, err := LoadEmbedded(Options{})
	if err != nil {
		b.Fatalf("LoadEmbedded: %v", err)
	}
	r := NewResolver(tbl, DefaultNoiseDenylist)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Resolve("Static.Files.Example.co.uk")
	}
}
