package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketExhaustsCapacity(t *testing.T) {
	tb := NewTokenBucket(3, 1)
	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "request %d should pass", i)
	}
	assert.False(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucketRefills(t *testing.T) {
	tb := NewTokenBucket(5, 2)
	for i := 0; i < 5; i++ {
		assert.True(t, tb.Allow())
	}
	assert.False(t, tb.Allow())

	// 回拨上次补充时间模拟经过 2 秒，应补 4 个令牌
	tb.mu.Lock()
	tb.lastRefill = time.Now().Add(-2 * time.Second)
	tb.mu.Unlock()

	for i := 0; i < 4; i++ {
		assert.True(t, tb.Allow(), "refilled token %d", i)
	}
	assert.False(t, tb.Allow())
}

func TestTokenBucketCapsAtCapacity(t *testing.T) {
	tb := NewTokenBucket(2, 100)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())

	// 长时间空闲后补充的令牌不超过桶容量
	tb.mu.Lock()
	tb.lastRefill = time.Now().Add(-time.Minute)
	tb.mu.Unlock()

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}
