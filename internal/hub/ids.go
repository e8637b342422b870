package hub

import (
	"strconv"
	"sync/atomic"
)

// ConnectionID identifies one connection for the lifetime of the process.
type ConnectionID uint64

func (id ConnectionID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// IDAllocator hands out strictly increasing connection ids starting at 1.
// The zero value is ready to use.
type IDAllocator struct {
	last atomic.Uint64
}

// Next returns an id greater than every id previously returned.
func (a *IDAllocator) Next() ConnectionID {
	return ConnectionID(a.last.Add(1))
}
