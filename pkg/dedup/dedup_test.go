package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldProcessOncePerTTL(t *testing.T) {
	d := New(time.Minute, 100)

	assert.True(t, d.ShouldProcess("rec-1"))
	assert.False(t, d.ShouldProcess("rec-1"))
	assert.True(t, d.ShouldProcess("rec-2"))
}

func TestExpiredEntriesProcessAgain(t *testing.T) {
	d := New(10*time.Millisecond, 100)

	assert.True(t, d.ShouldProcess("rec-1"))
	time.Sleep(20 * time.Millisecond)
	assert.True(t, d.ShouldProcess("rec-1"))
}

func TestCapHoldsUnderUniqueTraffic(t *testing.T) {
	d := New(time.Minute, 8)

	for i := 0; i < 100; i++ {
		assert.True(t, d.ShouldProcess(Key([]byte{byte(i)})))
		assert.LessOrEqual(t, len(d.seen), 8)
	}
}

func TestEvictDropsEntriesClosestToExpiry(t *testing.T) {
	d := New(time.Minute, 2)

	assert.True(t, d.ShouldProcess("rec-1"))
	assert.True(t, d.ShouldProcess("rec-2"))
	assert.True(t, d.ShouldProcess("rec-3")) // pushes rec-1 out

	assert.True(t, d.ShouldProcess("rec-1"))
	assert.False(t, d.ShouldProcess("rec-3"))
}

func TestEmptyKey(t *testing.T) {
	d := New(time.Minute, 100)

	assert.True(t, d.ShouldProcess(""))
	assert.True(t, d.ShouldProcess(""))
}

func TestKeyIsStable(t *testing.T) {
	assert.Equal(t, Key([]byte("payload")), Key([]byte("payload")))
	assert.NotEqual(t, Key([]byte("payload")), Key([]byte("other")))
}
