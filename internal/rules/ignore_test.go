package rules

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/netxfw/forbidlog/pkg/errors"
)

func newEnv(t *testing.T, method, target, client string) *Env {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("User-Agent", "curl/8.0")
	req.Header.Set("X-Scanner", "nessus")
	var addr netip.Addr
	if client != "" {
		addr = netip.MustParseAddr(client)
	}
	return NewEnv(req, req.RequestURI, addr, "index.php")
}

// TestCompile tests expression compilation
// TestCompile 测试表达式编译
func TestCompile(t *testing.T) {
	_, err := Compile(`Path startsWith "/healthz"`)
	assert.NoError(t, err)

	_, err = Compile(`Path ==`)
	assert.ErrorIs(t, err, ferrors.ErrInvalidExpression)

	// non-boolean results are rejected at compile time
	// 非布尔结果在编译时被拒绝
	_, err = Compile(`Path`)
	assert.ErrorIs(t, err, ferrors.ErrInvalidExpression)

	_, err = Compile(`NoSuchField == "x"`)
	assert.ErrorIs(t, err, ferrors.ErrInvalidExpression)
}

// TestSet_Match tests rule matching
// TestSet_Match 测试规则匹配
func TestSet_Match(t *testing.T) {
	set, err := NewSet([]string{
		`Path startsWith "/healthz"`,
		`Method == "OPTIONS"`,
		`InCIDR("10.0.0.0/8")`,
		`Header("X-Scanner") == "internal"`,
		`Lower(UserAgent) contains "uptimerobot"`,
		"",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, set.Len())

	tests := []struct {
		name    string
		method  string
		target  string
		client  string
		matched bool
		source  string
	}{
		{"health", http.MethodGet, "/healthz/live", "203.0.113.1", true, `Path startsWith "/healthz"`},
		{"options", http.MethodOptions, "/admin", "203.0.113.1", true, `Method == "OPTIONS"`},
		{"internal client", http.MethodGet, "/admin", "10.1.2.3", true, `InCIDR("10.0.0.0/8")`},
		{"attack", http.MethodGet, "/wp-admin", "203.0.113.1", false, ""},
		{"no client", http.MethodGet, "/wp-admin", "", false, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rule, ok := set.Match(newEnv(t, tc.method, tc.target, tc.client))
			assert.Equal(t, tc.matched, ok)
			assert.Equal(t, tc.source, rule.Source)
		})
	}
}

func TestSet_Header(t *testing.T) {
	set, err := NewSet([]string{`Header("X-Scanner") == "nessus" && Entry == "index.php"`})
	require.NoError(t, err)
	_, ok := set.Match(newEnv(t, http.MethodGet, "/", "198.51.100.1"))
	assert.True(t, ok)
}

// TestSet_Update tests that a failed update keeps old rules
// TestSet_Update 测试更新失败时保留旧规则
func TestSet_Update(t *testing.T) {
	set, err := NewSet([]string{`Method == "HEAD"`})
	require.NoError(t, err)

	err = set.Update([]string{`Method == "GET"`, `broken ==`})
	assert.Error(t, err)
	assert.Equal(t, 1, set.Len())

	_, ok := set.Match(newEnv(t, http.MethodHead, "/", ""))
	assert.True(t, ok)

	require.NoError(t, set.Update(nil))
	assert.Equal(t, 0, set.Len())
}

func TestNewSet_Invalid(t *testing.T) {
	set, err := NewSet([]string{`Path startsWith`})
	assert.Nil(t, set)
	assert.ErrorIs(t, err, ferrors.ErrInvalidExpression)
}

func TestSet_Nil(t *testing.T) {
	var set *Set
	_, ok := set.Match(&Env{})
	assert.False(t, ok)
	assert.Equal(t, 0, set.Len())
}
