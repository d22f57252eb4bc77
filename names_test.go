package cexec_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/ruffel/cexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameGenerator(t *testing.T) {
	t.Parallel()

	g := cexec.NewNameGenerator("it-")
	require.Len(t, g.Seed(), 8)

	assert.Equal(t, "it-"+g.Seed()+"-1", g.Next())
	assert.Equal(t, "it-"+g.Seed()+"-2", g.Next())

	bare := cexec.NewNameGenerator("")
	assert.Equal(t, bare.Seed()+"-1", bare.Next())

	assert.NotEqual(t, g.Seed(), bare.Seed())
}

func TestNameGenerator_Concurrent(t *testing.T) {
	t.Parallel()

	g := cexec.NewNameGenerator("c")

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
		wg   sync.WaitGroup
	)

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 50 {
				name := g.Next()

				mu.Lock()
				seen[name] = struct{}{}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Len(t, seen, 400)

	for name := range seen {
		assert.True(t, strings.HasPrefix(name, "c-"+g.Seed()+"-"))
	}
}

func TestPortAllocator(t *testing.T) {
	t.Parallel()

	a, err := cexec.NewPortAllocator(30000, 30002)
	require.NoError(t, err)

	for _, want := range []int{30000, 30001, 30002} {
		got, err := a.Next()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = a.Next()
	require.ErrorIs(t, err, cexec.ErrPortsExhausted)

	a.Release(30001)
	a.Release(40000)

	got, err := a.Next()
	require.NoError(t, err)
	assert.Equal(t, 30001, got)
}

func TestNewPortAllocator_InvalidRange(t *testing.T) {
	t.Parallel()

	for _, r := range [][2]int{{0, 10}, {10, 5}, {60000, 70000}} {
		_, err := cexec.NewPortAllocator(r[0], r[1])
		assert.Error(t, err, "%d-%d", r[0], r[1])
	}
}
