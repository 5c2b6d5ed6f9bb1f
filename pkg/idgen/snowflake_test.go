package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextIDUnique(t *testing.T) {
	Init(1)

	const n = 10000
	seen := make(map[int64]bool, n)
	for i := 0; i < n; i++ {
		id := NextID()
		assert.False(t, seen[id], "重复ID: %d", id)
		seen[id] = true
	}
}

func TestNextIDConcurrent(t *testing.T) {
	Init(1)

	const goroutines = 8
	const perGoroutine = 1000

	var mu sync.Mutex
	seen := make(map[int64]bool, goroutines*perGoroutine)
	var wg sync.WaitGroup

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]int64, 0, perGoroutine)
			for i := 0; i < perGoroutine; i++ {
				ids = append(ids, NextID())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				assert.False(t, seen[id])
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
}

func TestGeneratedNumbers(t *testing.T) {
	t.Run("Transaction No", func(t *testing.T) {
		no := GenerateTransactionNo()
		assert.True(t, strings.HasPrefix(no, "TXN"))
		// TXN + 14位时间 + 8位尾号
		assert.Len(t, no, 25)
	})

	t.Run("Flag No", func(t *testing.T) {
		no := GenerateFlagNo()
		assert.True(t, strings.HasPrefix(no, "FLG"))
		assert.Len(t, no, 25)
	})

	t.Run("Distinct", func(t *testing.T) {
		assert.NotEqual(t, GenerateTransactionNo(), GenerateTransactionNo())
	})
}
