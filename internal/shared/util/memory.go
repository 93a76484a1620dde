package util

import (
	"runtime"
)

// HeapAllocBytes returns the current heap allocation in bytes.
func HeapAllocBytes() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc
}
