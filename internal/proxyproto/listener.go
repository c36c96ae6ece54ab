package proxyproto

import (
	"bufio"
	"net"
	"net/netip"
	"sync"
	"time"
)

// DefaultHeaderTimeout bounds how long a trusted peer may take to send its header.
// DefaultHeaderTimeout 限制受信任对端发送头部的最长时间。
const DefaultHeaderTimeout = 5 * time.Second

// Listener wraps accepted connections so RemoteAddr reports the address from the PROXY header.
// Only peers accepted by trusted must send a header; a nil trusted func requires it from everyone.
// Listener 包装接受的连接，使 RemoteAddr 返回 PROXY 头中的地址。
// 只有 trusted 接受的对端必须发送头部；trusted 为 nil 时要求所有对端发送。
type Listener struct {
	net.Listener
	trusted func(netip.Addr) bool
	timeout time.Duration
}

// NewListener wraps ln.
// NewListener 包装 ln。
func NewListener(ln net.Listener, trusted func(netip.Addr) bool, timeout time.Duration) *Listener {
	if timeout <= 0 {
		timeout = DefaultHeaderTimeout
	}
	return &Listener{Listener: ln, trusted: trusted, timeout: timeout}
}

// Accept waits for the next connection. The header is read lazily on first use.
// Accept 等待下一个连接，头部在首次使用时才读取。
func (l *Listener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	required := l.trusted == nil || l.trusted(peerAddr(c.RemoteAddr()))
	r := bufio.NewReader(c)
	if required {
		r = bufio.NewReaderSize(c, MaxHeaderLength)
	}
	return &Conn{Conn: c, r: r, required: required, timeout: l.timeout}, nil
}

func peerAddr(a net.Addr) netip.Addr {
	if a == nil {
		return netip.Addr{}
	}
	ap, err := netip.ParseAddrPort(a.String())
	if err != nil {
		return netip.Addr{}
	}
	return ap.Addr().Unmap()
}

// Conn is a connection whose first bytes may be a PROXY header.
// Conn 是首部可能为 PROXY 头的连接。
type Conn struct {
	net.Conn
	r        *bufio.Reader
	required bool
	timeout  time.Duration

	once   sync.Once
	header *Header
	err    error
}

func (c *Conn) readHeader() {
	c.once.Do(func() {
		if !c.required {
			return
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.timeout))
		defer func() { _ = c.Conn.SetReadDeadline(time.Time{}) }()
		c.header, c.err = ReadHeader(c.r)
	})
}

// Header returns the parsed header, nil for untrusted peers.
// Header 返回解析后的头部，不受信任的对端返回 nil。
func (c *Conn) Header() (*Header, error) {
	c.readHeader()
	return c.header, c.err
}

func (c *Conn) Read(b []byte) (int, error) {
	c.readHeader()
	if c.err != nil {
		return 0, c.err
	}
	return c.r.Read(b)
}

// RemoteAddr returns the client address from the header when there is one.
// RemoteAddr 存在头部时返回其中的客户端地址。
func (c *Conn) RemoteAddr() net.Addr {
	c.readHeader()
	if ap, ok := c.header.SourceAddr(); ok {
		return net.TCPAddrFromAddrPort(ap)
	}
	return c.Conn.RemoteAddr()
}
