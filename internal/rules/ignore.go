// Package rules compiles the ignore expressions that suppress forbidden-access lines.
// Package rules 编译用于抑制禁止访问日志行的忽略表达式。
package rules

import (
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	ferrors "github.com/netxfw/forbidlog/pkg/errors"
)

// Env is the environment an ignore expression runs against.
// Env 是忽略表达式运行的环境。
type Env struct {
	Path      string // raw request target
	Method    string
	Host      string
	Client    string
	UserAgent string
	Entry     string // first loaded file

	headers http.Header
	addr    netip.Addr
}

// NewEnv builds an Env from a request.
// NewEnv 根据请求构建 Env。
func NewEnv(r *http.Request, path string, client netip.Addr, entry string) *Env {
	env := &Env{
		Path:      path,
		Method:    r.Method,
		Host:      r.Host,
		UserAgent: r.UserAgent(),
		Entry:     entry,
		headers:   r.Header,
		addr:      client,
	}
	if client.IsValid() {
		env.Client = client.String()
	}
	return env
}

// Header returns the first value of the named request header.
// Usage: Header("X-Scanner") != ""
func (e *Env) Header(name string) string {
	if e.headers == nil {
		return ""
	}
	return e.headers.Get(name)
}

// InCIDR reports whether the client address is inside cidr.
// Usage: InCIDR("10.0.0.0/8")
func (e *Env) InCIDR(cidr string) bool {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil || !e.addr.IsValid() {
		return false
	}
	return prefix.Contains(e.addr)
}

// Lower lower-cases s.
func (e *Env) Lower(s string) string {
	return strings.ToLower(s)
}

// Rule represents a compiled ignore rule.
// Rule 表示已编译的忽略规则。
type Rule struct {
	Source  string
	Program *vm.Program
}

// Compile compiles a single boolean expression.
// Compile 编译单个布尔表达式。
func Compile(src string) (Rule, error) {
	program, err := expr.Compile(src, expr.Env(&Env{}), expr.AsBool())
	if err != nil {
		return Rule{}, ferrors.NewExpressionError(src, err)
	}
	return Rule{Source: src, Program: program}, nil
}

// Set holds the active ignore rules. Rules can be swapped while requests are in flight.
// Set 保存当前生效的忽略规则，可以在请求处理期间替换。
type Set struct {
	rules atomic.Pointer[[]Rule]
}

// NewSet compiles sources into a Set. The first invalid expression aborts.
// NewSet 将表达式编译为 Set，遇到第一个无效表达式即中止。
func NewSet(sources []string) (*Set, error) {
	s := &Set{}
	s.rules.Store(&[]Rule{})
	if err := s.Update(sources); err != nil {
		return nil, err
	}
	return s, nil
}

// Update compiles and swaps in new rules. On error the old rules stay active.
// Update 编译并替换规则，出错时保留旧规则。
func (s *Set) Update(sources []string) error {
	compiled := make([]Rule, 0, len(sources))
	for _, src := range sources {
		if strings.TrimSpace(src) == "" {
			continue
		}
		rule, err := Compile(src)
		if err != nil {
			return err
		}
		compiled = append(compiled, rule)
	}
	s.rules.Store(&compiled)
	return nil
}

// Len returns the number of active rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(*s.rules.Load())
}

// Match returns the first rule that evaluates to true.
// A rule that fails at runtime counts as not matching.
// Match 返回第一个求值为 true 的规则，运行时出错的规则视为不匹配。
func (s *Set) Match(env *Env) (Rule, bool) {
	if s == nil {
		return Rule{}, false
	}
	for _, rule := range *s.rules.Load() {
		out, err := expr.Run(rule.Program, env)
		if err != nil {
			continue
		}
		if matched, ok := out.(bool); ok && matched {
			return rule, true
		}
	}
	return Rule{}, false
}
