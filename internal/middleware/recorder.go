package middleware

import (
	"net/http"
)

// statusRecorder reports the final status once, before it reaches the client.
// statusRecorder 在状态码发送给客户端之前报告一次最终状态码。
type statusRecorder struct {
	http.ResponseWriter
	wroteHeader bool
	status      int
	onHeader    func(status int)
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		// 1xx other than 101 are interim; the final status comes later.
		// 除 101 外的 1xx 是临时响应，最终状态码随后发送。
		if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
			w.ResponseWriter.WriteHeader(code)
			return
		}
		w.wroteHeader = true
		w.status = code
		if w.onHeader != nil {
			w.onHeader(code)
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Flush keeps streaming upstreams working.
func (w *statusRecorder) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
