// Package forbidden writes the single log line that ban daemons key on when a request is answered with 403.
// Package forbidden 在请求被 403 拒绝时写入供 ban 守护进程匹配的单行日志。
package forbidden

import (
	"net/netip"
)

const (
	// Category is the literal tag external watchers match on. Never change it.
	// Category 是外部监视程序匹配的字面标签，不可修改。
	Category = "403_forbidden"

	// MessagePrefix opens every emitted line.
	// MessagePrefix 是每行日志的开头。
	MessagePrefix = "Malicious traffic detected: "

	// NoEntryFile replaces the entry file when the loaded-files list is empty.
	// NoEntryFile 在加载文件列表为空时替代入口文件。
	NoEntryFile = "-"

	// NoClient fills the client prefix when the address is unknown.
	// NoClient 在客户端地址未知时填充客户端前缀。
	NoClient = "-"
)

// LogEvent is built and discarded within one call.
// LogEvent 在一次调用中构建并丢弃。
type LogEvent struct {
	Category    string
	RequestPath string     // raw request target, escaped on output
	EntryFile   string     // first loaded file
	Client      netip.Addr // optional, only used for the client prefix
}

// NewEvent builds an event from the request path and the ordered loaded files.
// Only the first loaded file is kept.
// NewEvent 根据请求路径和有序的加载文件列表构建事件，只保留第一个加载文件。
func NewEvent(requestPath string, loadedFiles []string) LogEvent {
	entry := NoEntryFile
	if len(loadedFiles) > 0 {
		entry = loadedFiles[0]
	}
	return LogEvent{
		Category:    Category,
		RequestPath: requestPath,
		EntryFile:   entry,
	}
}

// String renders the line without a client prefix:
// Malicious traffic detected: 403_forbidden (<path>) <<entry>
// String 渲染不带客户端前缀的日志行。
func (e LogEvent) String() string {
	category := e.Category
	if category == "" {
		category = Category
	}
	return MessagePrefix + category + " (" + Escape(e.RequestPath) + ") <" + Escape(e.EntryFile)
}

// Line renders the event, optionally prefixed the way Apache's error log tags clients.
// With the prefix on, an unknown client is written as "[client -]" so the
// line always starts with the tag and never with request text.
// Line 渲染事件，可选地加上 Apache 错误日志风格的客户端前缀。
// 启用前缀时，未知客户端写为 "[client -]"，行首始终是标签而不是请求内容。
func (e LogEvent) Line(clientPrefix bool) string {
	if !clientPrefix {
		return e.String()
	}
	client := NoClient
	if e.Client.IsValid() {
		client = e.Client.Unmap().String()
	}
	return "[client " + client + "] " + e.String()
}
