package utils

import (
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken("secret", 42, "Alice", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "Alice", claims.Name)

	_, err = ParseToken("other", tok)
	assert.Error(t, err)

	expired, err := GenerateToken("secret", 42, "Alice", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("secret", expired)
	assert.Error(t, err)

	_, err = GenerateToken("", 1, "x", time.Hour)
	assert.Error(t, err)
}

func TestBlacklistInMemory(t *testing.T) {
	SetRedis(nil)
	BlacklistToken("mem-token", time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted("mem-token"))
	assert.False(t, IsTokenBlacklisted("other-token"))

	BlacklistToken("already-expired", time.Now().Add(-time.Second))
	assert.False(t, IsTokenBlacklisted("already-expired"))
}

func TestBlacklistRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	SetRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetRedis(nil) })

	BlacklistToken("redis-token", time.Now().Add(time.Minute))
	assert.True(t, mr.Exists(blacklistKeyPrefix+"redis-token"))
	assert.True(t, IsTokenBlacklisted("redis-token"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, IsTokenBlacklisted("redis-token"))
}

func TestSanitize(t *testing.T) {
	md := "> quote & **bold** 1 < 2"
	assert.Equal(t, "> quote & **bold**", Sanitize("> quote & **bold**"))
	assert.NotContains(t, Sanitize(md+"<script>alert(1)</script>"), "<script>")
	assert.Equal(t, `<a href="https://example.com" rel="nofollow">x</a>`, Sanitize(`<a href="https://example.com" onclick="x()">x</a>`))
	assert.Equal(t, "hello", SanitizeText("<b>hello</b>"))
	assert.Equal(t, "plain title", SanitizeText("plain title"))
}

func TestPassword(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("long-enough")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "long-enough"))
	assert.False(t, CheckPassword(hash, "wrong-password"))
	assert.False(t, CheckPassword("", "long-enough"))
}

func TestUniqueUint(t *testing.T) {
	assert.Equal(t, []uint{3, 1, 2}, UniqueUint([]uint{3, 1, 3, 2, 1}))
	assert.Empty(t, UniqueUint(nil))
}

func TestServerShutdownRunsClosers(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(ln.Addr().String(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), time.Second, time.Second)
	var closed []string
	srv.OnShutdown(func() error { closed = append(closed, "store"); return nil })
	srv.OnShutdown(func() error { closed = append(closed, "redis"); return nil })

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, srv.Shutdown())
	require.NoError(t, <-done)
	assert.Equal(t, []string{"store", "redis"}, closed)
}
