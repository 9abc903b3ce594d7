package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterStoreBurst(t *testing.T) {
	store := NewLimiterStore(1, 3, time.Minute)
	defer store.Stop()

	// Первые burst запросов проходят, дальше — отказ
	for i := 0; i < 3; i++ {
		assert.True(t, store.Allow("10.0.0.1"), "запрос %d должен пройти", i+1)
	}
	assert.False(t, store.Allow("10.0.0.1"))
}

func TestLimiterStoreKeysIsolated(t *testing.T) {
	store := NewLimiterStore(1, 1, time.Minute)
	defer store.Stop()

	assert.True(t, store.Allow("10.0.0.1"))
	assert.False(t, store.Allow("10.0.0.1"))

	// Исчерпание лимита одного клиента не трогает остальных
	assert.True(t, store.Allow("10.0.0.2"))
}
