package performance

import (
	"fmt"
	"runtime"
)

// MemoryUsage is the memory footprint logged with playback statistics
type MemoryUsage struct {
	HeapMB      uint64 // Go heap in use
	SysMB       uint64 // memory obtained from the OS by the Go runtime
	NumGC       uint32
	AvailableMB uint64 // system-wide available memory, 0 when unknown
}

// ReadMemory samples the Go runtime and, where supported, the system
func ReadMemory() MemoryUsage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemoryUsage{
		HeapMB:      m.HeapAlloc >> 20,
		SysMB:       m.Sys >> 20,
		NumGC:       m.NumGC,
		AvailableMB: availableMB(),
	}
}

func (u MemoryUsage) String() string {
	avail := "n/a"
	if u.AvailableMB > 0 {
		avail = fmt.Sprintf("%dMB", u.AvailableMB)
	}
	return fmt.Sprintf("heap=%dMB sys=%dMB gc=%d avail=%s", u.HeapMB, u.SysMB, u.NumGC, avail)
}
