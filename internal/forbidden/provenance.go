package forbidden

import (
	"context"
	"net/http"
	"sync"
)

type provenanceKey struct{}

// Provenance is the ordered list of files (handlers, scripts, modules) that served a request.
// Provenance 是处理请求的文件（处理器、脚本、模块）的有序列表。
type Provenance struct {
	mu    sync.Mutex
	files []string
}

// WithEntry attaches a new list to ctx, seeded with entry when it is non-empty.
// WithEntry 将新列表附加到 ctx，entry 非空时作为第一个元素。
func WithEntry(ctx context.Context, entry string) context.Context {
	p := &Provenance{}
	if entry != "" {
		p.files = append(p.files, entry)
	}
	return context.WithValue(ctx, provenanceKey{}, p)
}

// Include appends name to the list on ctx. It is a no-op without a list.
// Include 将 name 追加到 ctx 上的列表，没有列表时不做任何操作。
func Include(ctx context.Context, name string) {
	p, ok := ctx.Value(provenanceKey{}).(*Provenance)
	if !ok || name == "" {
		return
	}
	p.mu.Lock()
	p.files = append(p.files, name)
	p.mu.Unlock()
}

// LoadedFiles returns a copy of the list on ctx.
// LoadedFiles 返回 ctx 上列表的副本。
func LoadedFiles(ctx context.Context) []string {
	p, ok := ctx.Value(provenanceKey{}).(*Provenance)
	if !ok {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.files))
	copy(out, p.files)
	return out
}

// IncludeHandler records name before serving h.
// IncludeHandler 在调用 h 之前记录 name。
func IncludeHandler(name string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Include(r.Context(), name)
		h.ServeHTTP(w, r)
	})
}
