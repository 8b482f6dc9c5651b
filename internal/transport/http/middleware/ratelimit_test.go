package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestClientIP_XForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	assert.Equal(t, "1.2.3.4", clientIP(req))
}

func TestClientIP_XRealIP_Fallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-Ip", "9.10.11.12")
	assert.Equal(t, "9.10.11.12", clientIP(req))
}

func TestClientIP_RemoteAddr_StripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:54321"
	assert.Equal(t, "192.168.1.1", clientIP(req))
}

func TestClientIP_XForwardedFor_TakesPrecedenceOverXRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.1.1.1")
	req.Header.Set("X-Real-Ip", "2.2.2.2")
	assert.Equal(t, "1.1.1.1", clientIP(req))
}

func limited(rl *RateLimiter) http.Handler {
	return rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doRequest(h http.Handler, ip string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestLimit_BlocksAfterBurst(t *testing.T) {
	h := limited(NewRateLimiter(rate.Limit(1), 2))

	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "10.0.0.1"))
}

func TestLimit_PerIPIsolation(t *testing.T) {
	h := limited(NewRateLimiter(rate.Limit(1), 1))

	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.2"))
}

// Reconnecting on a new source port must not reset the bucket.
func TestLimit_SameIPDifferentPorts_ShareBucket(t *testing.T) {
	h := limited(NewRateLimiter(rate.Limit(1), 1))

	req1 := httptest.NewRequest(http.MethodGet, "/", nil)
	req1.RemoteAddr = "10.0.0.1:1111"
	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, req1)
	assert.Equal(t, http.StatusOK, rec1.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.RemoteAddr = "10.0.0.1:2222"
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
}
