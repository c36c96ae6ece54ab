package forbidden

import (
	"fmt"
	"regexp"
	"strings"
)

// FailRegex is the fail2ban failregex matching a prefixed line. <HOST> is fail2ban's host tag.
// The client tag must open the message: either the line itself (stderr / stdout sinks)
// or the message after zap's "<time>\t<LEVEL>\t" columns (logger sink).
// Request text can therefore never supply the host.
// FailRegex 是匹配带前缀日志行的 fail2ban failregex，<HOST> 是 fail2ban 的主机标签。
// 客户端标签必须位于消息开头：即行首（stderr / stdout），或 zap 的 "<时间>\t<级别>\t" 列之后（logger）。
// 因此请求内容永远无法提供主机地址。
const FailRegex = `^(?:\S*\t[A-Za-z]+\t)?\[client <HOST>\] ` + `Malicious traffic detected: ` + Category + ` \(.*\) <\S*$`

// Fail2banFilter renders a filter.d definition for the emitted lines.
// Fail2banFilter 渲染与输出日志行匹配的 filter.d 定义。
func Fail2banFilter() string {
	var b strings.Builder
	b.WriteString("# fail2ban filter for forbidlog\n")
	b.WriteString("# Requires forbidden.client_prefix: true\n")
	b.WriteString("# Lines for unknown clients carry \"[client -]\" and never match\n\n")
	b.WriteString("[INCLUDES]\nbefore = common.conf\n\n")
	b.WriteString("[Definition]\n")
	fmt.Fprintf(&b, "failregex = %s\n", FailRegex)
	b.WriteString("ignoreregex =\n")
	return b.String()
}

// CompileFailRegex turns FailRegex into a Go regexp with a "host" group, for self-checks.
// CompileFailRegex 将 FailRegex 转换为带 "host" 分组的 Go 正则表达式，用于自检。
func CompileFailRegex() *regexp.Regexp {
	return regexp.MustCompile(strings.Replace(FailRegex, "<HOST>", `(?P<host>[0-9A-Fa-f:.]+)`, 1))
}

// MatchHost extracts the client address from a log line, or "" when the line does not match.
// MatchHost 从日志行中提取客户端地址，不匹配时返回 ""。
func MatchHost(re *regexp.Regexp, line string) string {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[re.SubexpIndex("host")]
}
