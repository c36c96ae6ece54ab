// Package proxyproto reads PROXY protocol headers sent by load balancers in front of the proxy.
// Package proxyproto 读取代理前端负载均衡器发送的 PROXY 协议头。
package proxyproto

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net/netip"
	"strconv"
	"strings"
)

// Protocol version and command constants.
// 协议版本和命令常量。
const (
	SignatureV1 = "PROXY"
	SignatureV2 = "\x0D\x0A\x0D\x0A\x00\x0D\x0A\x51\x55\x49\x54\x0A"

	CommandLocal = 0x00
	CommandProxy = 0x01

	AFUnspec = 0x00
	AFInet   = 0x10
	AFInet6  = 0x20
	AFUnix   = 0x30

	StreamUnspec = 0x00
	StreamTCP    = 0x01
	StreamUDP    = 0x02

	maxV1Length    = 107
	v2HeaderLength = 16

	// MaxHeaderLength is the largest v2 header, TLVs included. Readers passed to
	// ReadHeader need a buffer at least this big to accept every valid header.
	// MaxHeaderLength 是包含 TLV 的最大 v2 头部长度，传给 ReadHeader 的 Reader 缓冲区至少需要这么大。
	MaxHeaderLength = v2HeaderLength + math.MaxUint16
)

var (
	ErrInvalidSignature = errors.New("invalid proxy protocol signature")
	ErrInvalidHeader    = errors.New("invalid proxy protocol header")
	ErrUnsupported      = errors.New("unsupported proxy protocol version")
)

// Header represents a Proxy Protocol header.
// Header 表示 Proxy Protocol 头。
type Header struct {
	Version         byte
	Command         byte
	SourceIP        netip.Addr
	DestinationIP   netip.Addr
	SourcePort      uint16
	DestinationPort uint16
}

// SourceAddr returns the original client address. LOCAL and UNKNOWN headers carry none.
// SourceAddr 返回原始客户端地址，LOCAL 和 UNKNOWN 头不携带地址。
func (h *Header) SourceAddr() (netip.AddrPort, bool) {
	if h == nil || h.Command != CommandProxy || !h.SourceIP.IsValid() {
		return netip.AddrPort{}, false
	}
	return netip.AddrPortFrom(h.SourceIP.Unmap(), h.SourcePort), true
}

// Parse parses a complete header at the start of data and returns it with its length.
// Parse 解析 data 开头的完整头部，并返回头部及其长度。
func Parse(data []byte) (*Header, int, error) {
	switch {
	case bytes.HasPrefix(data, []byte(SignatureV2)):
		return parseV2(data)
	case bytes.HasPrefix(data, []byte(SignatureV1)):
		end := bytes.Index(data, []byte("\r\n"))
		if end < 0 || end+2 > maxV1Length {
			return nil, 0, ErrInvalidHeader
		}
		h, err := parseV1(string(data[:end]))
		if err != nil {
			return nil, 0, err
		}
		return h, end + 2, nil
	default:
		return nil, 0, ErrInvalidSignature
	}
}

// ReadHeader consumes one header from r, leaving the payload that follows unread.
// v2 headers longer than r's buffer are rejected; size r with MaxHeaderLength to accept all of them.
// ReadHeader 从 r 读取一个头部，其后的数据保持未读。
// 超过 r 缓冲区的 v2 头部会被拒绝，使用 MaxHeaderLength 大小的 Reader 可接受所有头部。
func ReadHeader(r *bufio.Reader) (*Header, error) {
	first, err := r.Peek(1)
	if err != nil {
		return nil, err
	}

	switch first[0] {
	case SignatureV1[0]:
		line, err := r.ReadSlice('\n')
		if err != nil {
			if errors.Is(err, bufio.ErrBufferFull) {
				return nil, ErrInvalidHeader
			}
			return nil, err
		}
		if len(line) > maxV1Length || len(line) < 2 || line[len(line)-2] != '\r' {
			return nil, ErrInvalidHeader
		}
		return parseV1(string(line[:len(line)-2]))

	case SignatureV2[0]:
		fixed, err := r.Peek(v2HeaderLength)
		if err != nil {
			return nil, err
		}
		if string(fixed[:len(SignatureV2)]) != SignatureV2 {
			return nil, ErrInvalidSignature
		}
		total := v2HeaderLength + int(binary.BigEndian.Uint16(fixed[14:16]))
		if total > r.Size() {
			return nil, ErrInvalidHeader
		}
		data, err := r.Peek(total)
		if err != nil {
			return nil, err
		}
		h, n, err := parseV2(data)
		if err != nil {
			return nil, err
		}
		_, _ = r.Discard(n)
		return h, nil

	default:
		return nil, ErrInvalidSignature
	}
}

// parseV2 parses Proxy Protocol v2 header. TLVs after the addresses are skipped.
// parseV2 解析 Proxy Protocol v2 头，地址后的 TLV 被跳过。
func parseV2(data []byte) (*Header, int, error) {
	if len(data) < v2HeaderLength {
		return nil, 0, ErrInvalidHeader
	}

	verCmd := data[12]
	if verCmd>>4 != 2 {
		return nil, 0, ErrUnsupported
	}
	h := &Header{Version: 2, Command: verCmd & 0x0F}
	if h.Command != CommandLocal && h.Command != CommandProxy {
		return nil, 0, ErrInvalidHeader
	}

	addrLen := int(binary.BigEndian.Uint16(data[14:16]))
	total := v2HeaderLength + addrLen
	if len(data) < total {
		return nil, 0, ErrInvalidHeader
	}
	if h.Command == CommandLocal {
		return h, total, nil
	}

	addrs := data[v2HeaderLength:total]
	switch data[13] & 0xF0 {
	case AFInet:
		if addrLen < 12 {
			return nil, 0, ErrInvalidHeader
		}
		h.SourceIP = netip.AddrFrom4([4]byte(addrs[0:4]))
		h.DestinationIP = netip.AddrFrom4([4]byte(addrs[4:8]))
		h.SourcePort = binary.BigEndian.Uint16(addrs[8:10])
		h.DestinationPort = binary.BigEndian.Uint16(addrs[10:12])
	case AFInet6:
		if addrLen < 36 {
			return nil, 0, ErrInvalidHeader
		}
		h.SourceIP = netip.AddrFrom16([16]byte(addrs[0:16]))
		h.DestinationIP = netip.AddrFrom16([16]byte(addrs[16:32]))
		h.SourcePort = binary.BigEndian.Uint16(addrs[32:34])
		h.DestinationPort = binary.BigEndian.Uint16(addrs[34:36])
	case AFUnspec, AFUnix:
	default:
		return nil, 0, ErrUnsupported
	}
	return h, total, nil
}

// parseV1 parses a v1 line without its CRLF.
//
//	PROXY TCP4 192.168.0.1 192.168.0.11 56324 443
//	PROXY TCP6 2001:db8::1 2001:db8::2 56324 443
//	PROXY UNKNOWN
func parseV1(line string) (*Header, error) {
	parts := strings.Split(line, " ")
	if len(parts) < 2 || parts[0] != SignatureV1 {
		return nil, ErrInvalidHeader
	}

	h := &Header{Version: 1}
	switch parts[1] {
	case "UNKNOWN":
		h.Command = CommandLocal
		return h, nil
	case "TCP4", "TCP6":
	default:
		return nil, ErrInvalidHeader
	}
	if len(parts) != 6 {
		return nil, ErrInvalidHeader
	}

	src, err := netip.ParseAddr(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	dst, err := netip.ParseAddr(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	if (parts[1] == "TCP4") != src.Is4() || src.Is4() != dst.Is4() {
		return nil, ErrInvalidHeader
	}
	srcPort, err := parsePort(parts[4])
	if err != nil {
		return nil, err
	}
	dstPort, err := parsePort(parts[5])
	if err != nil {
		return nil, err
	}

	h.Command = CommandProxy
	h.SourceIP, h.DestinationIP = src, dst
	h.SourcePort, h.DestinationPort = srcPort, dstPort
	return h, nil
}

func parsePort(s string) (uint16, error) {
	p, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: port %q", ErrInvalidHeader, s)
	}
	return uint16(p), nil
}
