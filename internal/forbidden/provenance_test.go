package forbidden

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProvenance(t *testing.T) {
	ctx := WithEntry(context.Background(), "index.php")
	Include(ctx, "router.php")
	Include(ctx, "")
	Include(ctx, "admin.php")

	assert.Equal(t, []string{"index.php", "router.php", "admin.php"}, LoadedFiles(ctx))

	// returned slice is a copy
	files := LoadedFiles(ctx)
	files[0] = "mutated"
	assert.Equal(t, "index.php", LoadedFiles(ctx)[0])
}

func TestProvenance_EmptyEntry(t *testing.T) {
	ctx := WithEntry(context.Background(), "")
	assert.Empty(t, LoadedFiles(ctx))
	Include(ctx, "first")
	assert.Equal(t, []string{"first"}, LoadedFiles(ctx))
}

func TestProvenance_NoList(t *testing.T) {
	ctx := context.Background()
	Include(ctx, "ignored")
	assert.Nil(t, LoadedFiles(ctx))
}

func TestIncludeHandler(t *testing.T) {
	var seen []string
	h := IncludeHandler("admin", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = LoadedFiles(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req = req.WithContext(WithEntry(req.Context(), "forbidlog"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, []string{"forbidlog", "admin"}, seen)
}
