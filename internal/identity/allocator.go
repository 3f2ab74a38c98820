// Package identity hands out the PersonN display names of live connections.
package identity

import (
	"strconv"
	"strings"
	"sync"
)

const namePrefix = "Person"

// Allocator assigns the smallest unused PersonN to each new connection.
type Allocator struct {
	mu    sync.Mutex
	inUse map[int]struct{}
}

func NewAllocator() *Allocator {
	return &Allocator{inUse: make(map[int]struct{})}
}

// Allocate reserves and returns the lowest free name.
func (a *Allocator) Allocate() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 1
	for {
		if _, taken := a.inUse[n]; !taken {
			break
		}
		n++
	}
	a.inUse[n] = struct{}{}
	return DisplayName(n)
}

// Release frees name. Unknown or malformed names are ignored.
func (a *Allocator) Release(name string) {
	n, ok := ParseDisplayName(name)
	if !ok {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.inUse, n)
}

// InUse reports how many names are currently held.
func (a *Allocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.inUse)
}

// DisplayName formats n as PersonN.
func DisplayName(n int) string {
	return namePrefix + strconv.Itoa(n)
}

// ParseDisplayName extracts N from PersonN. N must be a positive integer
// without sign or leading zeros.
func ParseDisplayName(name string) (int, bool) {
	digits, ok := strings.CutPrefix(name, namePrefix)
	if !ok || digits == "" || digits[0] == '0' {
		return 0, false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}
