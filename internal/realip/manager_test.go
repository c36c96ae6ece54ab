package realip

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
)

// TestNewManager tests the Manager creation.
// TestNewManager 测试 Manager 创建。
func TestNewManager(t *testing.T) {
	m := NewManager(&Config{
		TrustedProxies: []string{"10.0.0.0/8", "192.168.0.0/16", "not-a-cidr", "127.0.0.1"},
	})
	if m == nil {
		t.Fatal("Expected non-nil manager")
	}
	if len(m.trustedProxies) != 3 {
		t.Errorf("Expected 3 trusted proxy ranges, got %d", len(m.trustedProxies))
	}
	if got := m.GetStats()["trusted_proxy_ranges"]; got != 3 {
		t.Errorf("Expected stats to report 3, got %v", got)
	}

	if NewManager(nil) == nil {
		t.Fatal("Expected non-nil manager for nil config")
	}
}

// TestIsTrustedProxy tests the trusted proxy check.
// TestIsTrustedProxy 测试可信代理检查。
func TestIsTrustedProxy(t *testing.T) {
	m := NewManager(&Config{TrustedProxies: []string{"10.0.0.0/8", "::1"}})

	tests := []struct {
		ip       string
		expected bool
	}{
		{"10.0.1.100", true},
		{"10.255.255.255", true},
		{"::ffff:10.0.0.1", true},
		{"::1", true},
		{"192.168.1.1", false},
		{"172.16.0.1", false},
	}

	for _, tc := range tests {
		result := m.IsTrustedProxy(netip.MustParseAddr(tc.ip))
		if result != tc.expected {
			t.Errorf("IsTrustedProxy(%s) = %v, expected %v", tc.ip, result, tc.expected)
		}
	}

	if m.IsTrustedProxy(netip.Addr{}) {
		t.Error("Invalid address must not be trusted")
	}
}

// TestClientAddr tests real client resolution.
// TestClientAddr 测试真实客户端解析。
func TestClientAddr(t *testing.T) {
	m := NewManager(&Config{TrustedProxies: []string{"10.0.0.0/8"}})

	tests := []struct {
		name     string
		remote   string
		xff      []string
		realIP   string
		expected string
	}{
		{"untrusted peer ignores headers", "203.0.113.5:4444", []string{"1.1.1.1"}, "2.2.2.2", "203.0.113.5"},
		{"trusted peer uses xff", "10.0.0.2:80", []string{"198.51.100.7"}, "", "198.51.100.7"},
		{"right-most untrusted hop wins", "10.0.0.2:80", []string{"6.6.6.6, 198.51.100.7, 10.0.0.9"}, "", "198.51.100.7"},
		{"multiple xff headers", "10.0.0.2:80", []string{"6.6.6.6", "198.51.100.8"}, "", "198.51.100.8"},
		{"all hops trusted", "10.0.0.2:80", []string{"10.1.1.1, 10.2.2.2"}, "", "10.1.1.1"},
		{"garbage hop stops walk", "10.0.0.2:80", []string{"198.51.100.7, garbage"}, "", "10.0.0.2"},
		{"real ip fallback", "10.0.0.2:80", nil, "198.51.100.9", "198.51.100.9"},
		{"trusted peer without headers", "10.0.0.2:80", nil, "", "10.0.0.2"},
		{"ipv6 peer", "[2001:db8::1]:443", nil, "", "2001:db8::1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for _, v := range tc.xff {
				req.Header.Add(HeaderForwardedFor, v)
			}
			if tc.realIP != "" {
				req.Header.Set(HeaderRealIP, tc.realIP)
			}
			got := m.ClientAddr(req)
			if got.String() != tc.expected {
				t.Errorf("ClientAddr = %s, expected %s", got, tc.expected)
			}
		})
	}
}

func TestPeerAddr(t *testing.T) {
	if got := PeerAddr("192.0.2.1:1234"); got.String() != "192.0.2.1" {
		t.Errorf("PeerAddr = %s", got)
	}
	if got := PeerAddr("192.0.2.1"); got.String() != "192.0.2.1" {
		t.Errorf("PeerAddr bare = %s", got)
	}
	if got := PeerAddr("@"); got.IsValid() {
		t.Errorf("PeerAddr should be invalid, got %s", got)
	}
}

func TestParsePrefix(t *testing.T) {
	p, err := ParsePrefix("10.1.2.3/8")
	if err != nil || p.String() != "10.0.0.0/8" {
		t.Errorf("ParsePrefix masked = %v, %v", p, err)
	}
	p, err = ParsePrefix("2001:db8::1")
	if err != nil || p.Bits() != 128 {
		t.Errorf("ParsePrefix host = %v, %v", p, err)
	}
	if _, err := ParsePrefix("nope/33"); err == nil {
		t.Error("expected error")
	}
}
