package mock

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func createMockArgs() ArgsMockServer {
	return ArgsMockServer{
		Username:          "test",
		Password:          "test",
		ListenAddress:     "127.0.0.1:0",
		RequestsPerSecond: 1000,
		Burst:             1000,
		TokenTTL:          time.Hour,
	}
}

func serve(serv *server, method string, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBuffer(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	serv.router.ServeHTTP(w, req)

	return w
}

func login(t *testing.T, serv *server) string {
	w := serve(serv, http.MethodGet, "/login/?username=test&password=test", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["token"])

	return resp["token"]
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	args := createMockArgs()
	args.Username = ""
	_, err := NewServer(args)
	require.Error(t, err)

	args = createMockArgs()
	args.Burst = 0
	_, err = NewServer(args)
	require.Error(t, err)

	args = createMockArgs()
	args.TokenTTL = 0
	_, err = NewServer(args)
	require.Error(t, err)

	serv, err := NewServer(createMockArgs())
	require.NoError(t, err)
	require.NotNil(t, serv)
}

func TestServer_StatusAndLogin(t *testing.T) {
	t.Parallel()

	serv, _ := NewServer(createMockArgs())

	w := serve(serv, http.MethodGet, "/status", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(serv, http.MethodGet, "/login/?name=invalid&password=invalid", nil, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	token := login(t, serv)
	claims := &jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	require.Equal(t, "test", claims.Subject)
	require.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestServer_Auth(t *testing.T) {
	t.Parallel()

	serv, _ := NewServer(createMockArgs())
	token := login(t, serv)

	w := serve(serv, http.MethodGet, "/auth/", nil, map[string]string{"Authorization": "invalid_token"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = serve(serv, http.MethodGet, "/auth/", nil, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = serve(serv, http.MethodGet, "/auth/", nil, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"user":"test"`)

	// a token signed by another instance is rejected
	other, _ := NewServer(createMockArgs())
	w = serve(other, http.MethodGet, "/auth/", nil, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestServer_Feedback(t *testing.T) {
	t.Parallel()

	serv, _ := NewServer(createMockArgs())

	body, _ := json.Marshal(map[string]string{"name": "test42", "message": "test"})
	w := serve(serv, http.MethodPost, "/feedback/", body, map[string]string{"Content-Type": "application/json"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, uint64(1), serv.NumFeedback())

	w = serve(serv, http.MethodPost, "/feedback/", []byte(`{"name":"x"}`), map[string]string{"Content-Type": "application/json"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, uint64(1), serv.NumFeedback())
}

func TestServer_RateLimit(t *testing.T) {
	t.Parallel()

	args := createMockArgs()
	args.RequestsPerSecond = 0.001
	args.Burst = 2
	serv, _ := NewServer(args)

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		w := serve(serv, http.MethodGet, "/login/?username=test&password=test", nil, nil)
		codes[w.Code]++
	}
	require.Equal(t, 2, codes[http.StatusOK])
	require.Equal(t, 3, codes[http.StatusTooManyRequests])

	// invalid credentials are rejected before rate limiting
	w := serve(serv, http.MethodGet, "/login/?name=invalid&password=invalid", nil, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	body, _ := json.Marshal(map[string]string{"name": "test1", "message": "test"})
	w = serve(serv, http.MethodPost, "/feedback/", body, map[string]string{"Content-Type": "application/json"})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestServer_StartAndClose(t *testing.T) {
	t.Parallel()

	serv, err := NewServer(createMockArgs())
	require.NoError(t, err)
	require.NoError(t, serv.Start())

	resp, err := http.Get(serv.URL() + "/status")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, serv.Close())
}
