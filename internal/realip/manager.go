// Package realip resolves the real client address of an HTTP request behind trusted proxies.
// Package realip 解析可信代理之后 HTTP 请求的真实客户端地址。
package realip

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/netxfw/forbidlog/internal/utils/logger"

	"go.uber.org/zap"
)

const (
	HeaderForwardedFor = "X-Forwarded-For"
	HeaderRealIP       = "X-Real-IP"
)

// Manager resolves client addresses.
// Manager 解析客户端地址。
type Manager struct {
	trustedProxies []netip.Prefix
	log            *zap.SugaredLogger
}

// Config represents the real IP manager configuration.
// Config 表示真实 IP 管理器配置。
type Config struct {
	// TrustedProxies are proxy / load balancer ranges whose forwarding headers are honoured.
	// TrustedProxies 是其转发头会被采信的代理/负载均衡器范围。
	TrustedProxies []string
}

// NewManager creates a new real IP manager. Invalid CIDRs are logged and skipped.
// NewManager 创建新的真实 IP 管理器，无效的 CIDR 会被记录并跳过。
func NewManager(cfg *Config) *Manager {
	m := &Manager{
		trustedProxies: make([]netip.Prefix, 0),
		log:            logger.Get(context.Background()),
	}
	if cfg == nil {
		return m
	}

	for _, cidr := range cfg.TrustedProxies {
		prefix, err := ParsePrefix(cidr)
		if err != nil {
			m.log.Warnf("Invalid trusted proxy CIDR: %s: %v", cidr, err)
			continue
		}
		m.trustedProxies = append(m.trustedProxies, prefix)
	}

	return m
}

// ParsePrefix accepts a CIDR or a bare address (treated as a single-host prefix).
// ParsePrefix 接受 CIDR 或单个地址（视为单主机前缀）。
func ParsePrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// IsTrustedProxy checks if an address is inside a trusted proxy range.
// IsTrustedProxy 检查地址是否在可信代理范围内。
func (m *Manager) IsTrustedProxy(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range m.trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientAddr returns the real client address of r.
// When the peer is a trusted proxy, X-Forwarded-For is walked right to left and
// the first untrusted hop wins; X-Real-IP is the fallback. Otherwise the peer is the client.
// An invalid Addr means nothing could be parsed.
// ClientAddr 返回 r 的真实客户端地址。
// 当对端是可信代理时，从右到左遍历 X-Forwarded-For，第一个不可信的跳即为客户端；
// 回退到 X-Real-IP。否则对端就是客户端。
func (m *Manager) ClientAddr(r *http.Request) netip.Addr {
	peer := PeerAddr(r.RemoteAddr)
	if !m.IsTrustedProxy(peer) {
		return peer
	}

	if hops := forwardedHops(r.Header.Values(HeaderForwardedFor)); len(hops) > 0 {
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(hops[i])
			if err != nil {
				// Anything left of an unparsable hop is attacker controlled.
				// 无法解析的跳左侧的内容都可能被攻击者控制。
				break
			}
			addr = addr.Unmap()
			if !m.IsTrustedProxy(addr) {
				return addr
			}
			if i == 0 {
				return addr
			}
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get(HeaderRealIP)); realIP != "" {
		if addr, err := netip.ParseAddr(realIP); err == nil {
			return addr.Unmap()
		}
	}

	return peer
}

// PeerAddr parses a RemoteAddr ("ip:port" or bare ip).
// PeerAddr 解析 RemoteAddr（"ip:port" 或单独的 ip）。
func PeerAddr(remoteAddr string) netip.Addr {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}
	}
	return addr.Unmap()
}

func forwardedHops(values []string) []string {
	var hops []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				hops = append(hops, part)
			}
		}
	}
	return hops
}

// GetStats returns statistics about the manager.
// GetStats 返回管理器的统计信息。
func (m *Manager) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"trusted_proxy_ranges": len(m.trustedProxies),
	}
}
