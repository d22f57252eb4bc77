package cexec

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// NameGenerator hands out resource names (containers, networks, volumes) that
// are unique for the generator's lifetime and unlikely to collide with names
// from other processes. Pass one generator to every call site that needs it.
type NameGenerator struct {
	prefix  string
	seed    string
	counter atomic.Uint64
}

// NewNameGenerator creates a generator whose names start with prefix.
func NewNameGenerator(prefix string) *NameGenerator {
	return &NameGenerator{
		prefix: strings.TrimSuffix(prefix, "-"),
		seed:   strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
	}
}

// Seed returns the random component shared by every name of this generator.
func (g *NameGenerator) Seed() string {
	return g.seed
}

// Next returns "<prefix>-<seed>-<n>", n counting from 1.
func (g *NameGenerator) Next() string {
	n := g.counter.Add(1)

	if g.prefix == "" {
		return fmt.Sprintf("%s-%d", g.seed, n)
	}

	return fmt.Sprintf("%s-%s-%d", g.prefix, g.seed, n)
}

// ErrPortsExhausted is returned when every port of an allocator is in use.
var ErrPortsExhausted = errors.New("no free ports left in range")

// PortAllocator hands out host ports from a fixed range. It only tracks its
// own allocations; it does not check the host.
type PortAllocator struct {
	mu    sync.Mutex
	start int
	end   int
	next  int
	inUse map[int]struct{}
}

// NewPortAllocator creates an allocator over [start, end].
func NewPortAllocator(start, end int) (*PortAllocator, error) {
	if start < 1 || end > 65535 || start > end {
		return nil, fmt.Errorf("invalid port range %d-%d", start, end)
	}

	return &PortAllocator{
		start: start,
		end:   end,
		next:  start,
		inUse: make(map[int]struct{}),
	}, nil
}

// Next returns a port not currently allocated, scanning round-robin from the
// last allocation.
func (a *PortAllocator) Next() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	size := a.end - a.start + 1

	for range size {
		port := a.next

		a.next++
		if a.next > a.end {
			a.next = a.start
		}

		if _, taken := a.inUse[port]; !taken {
			a.inUse[port] = struct{}{}

			return port, nil
		}
	}

	return 0, fmt.Errorf("%w (%d-%d)", ErrPortsExhausted, a.start, a.end)
}

// Release makes port available again. Unknown ports are ignored.
func (a *PortAllocator) Release(port int) {
	a.mu.Lock()
	delete(a.inUse, port)
	a.mu.Unlock()
}
