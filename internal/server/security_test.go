package server

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Parallel()

	// 速率极低，只看突发容量
	rl := NewRateLimiter(0.001, 5)
	ip := "127.0.0.1"

	for i := range 5 {
		assert.True(t, rl.Allow(ip), "Request %d should be allowed", i)
	}
	assert.False(t, rl.Allow(ip), "6th request should be blocked")

	// 不同 IP 互不影响
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.Equal(t, 2, rl.Len())
}

func TestRateLimiter_Cleanup(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 1)
	rl.Allow("a")
	rl.Allow("b")

	rl.Cleanup(time.Hour)
	assert.Equal(t, 2, rl.Len())

	time.Sleep(5 * time.Millisecond)
	rl.Cleanup(time.Millisecond)
	assert.Zero(t, rl.Len())
}

func TestRateLimiter_Concurrency(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0.001, 20)
	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("concurrent-test") {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 20, successCount)
}

func TestMessageLimiter_WarnsThenKicks(t *testing.T) {
	t.Parallel()

	ml := NewMessageLimiter(0.001, 2, 2)

	for range 2 {
		allowed, kick := ml.Allow()
		assert.True(t, allowed)
		assert.False(t, kick)
	}

	allowed, kick := ml.Allow()
	assert.False(t, allowed)
	assert.False(t, kick)

	_, kick = ml.Allow()
	assert.False(t, kick)

	_, kick = ml.Allow()
	assert.True(t, kick)
}

func TestOriginChecker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"wildcard", []string{"*"}, "https://evil.example", true},
		{"listed", []string{"https://pong.example"}, "https://PONG.example", true},
		{"not listed", []string{"https://pong.example"}, "https://evil.example", false},
		{"no origin header", []string{"https://pong.example"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oc := NewOriginChecker(tt.allowed)
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, oc.Check(req))
		})
	}
}

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "10.0.0.2:1234", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "5.6.7.8"}, "10.0.0.2:1234", "5.6.7.8"},
		{"remote addr", nil, "9.9.9.9:5555", "9.9.9.9"},
		{"remote without port", nil, "9.9.9.9", "9.9.9.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}
