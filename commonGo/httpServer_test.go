package commonGo

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPServer(t *testing.T) {
	t.Parallel()

	t.Run("nil handler should error", func(t *testing.T) {
		t.Parallel()

		s, err := NewHTTPServer("test server", "127.0.0.1:0", nil)
		assert.Nil(t, s)
		assert.Error(t, err)
	})
	t.Run("close without start should work", func(t *testing.T) {
		t.Parallel()

		s, err := NewHTTPServer("test server", "127.0.0.1:0", http.NotFoundHandler())
		require.NoError(t, err)
		assert.NoError(t, s.Close())
	})
	t.Run("should serve on the resolved address", func(t *testing.T) {
		t.Parallel()

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("pong"))
		})
		s, err := NewHTTPServer("test server", "127.0.0.1:0", handler)
		require.NoError(t, err)
		require.NoError(t, s.Start())
		assert.NotEqual(t, "127.0.0.1:0", s.Address())

		resp, err := http.Get("http://" + s.Address() + "/ping")
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		assert.Equal(t, "pong", string(body))

		require.NoError(t, s.Close())
		_, err = http.Get("http://" + s.Address() + "/ping")
		assert.Error(t, err)
	})
}
