package requestid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddGet(t *testing.T) {
	ctx := context.Background()

	_, ok := FromContext(ctx)
	assert.False(t, ok)
	assert.Equal(t, "missing", FromContextOrMissing(ctx))

	ctx = AddToContext(ctx, "first")
	id, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "first", id)

	ctx = AddToContext(ctx, "second")
	assert.Equal(t, "second", FromContextOrMissing(ctx))
}

func TestMiddleware(t *testing.T) {
	tests := map[string]struct {
		replace    bool
		incomingId string
		expectSame bool
	}{
		"keeps incoming id":      {incomingId: "abc", expectSame: true},
		"generates missing id":   {},
		"replaces incoming id":   {replace: true, incomingId: "abc"},
		"generates when replace": {replace: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var seen string
			handler := Middleware(tc.replace)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var ok bool
				seen, ok = FromContext(r.Context())
				assert.True(t, ok)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.incomingId != "" {
				req.Header.Set(HeaderKey, tc.incomingId)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.NotEmpty(t, seen)
			assert.Equal(t, seen, rec.Header().Get(HeaderKey))
			if tc.expectSame {
				assert.Equal(t, tc.incomingId, seen)
			} else {
				assert.NotEqual(t, tc.incomingId, seen)
			}
		})
	}
}
