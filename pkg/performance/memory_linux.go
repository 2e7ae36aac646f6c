//go:build linux

package performance

import (
	"log"
	"syscall"
)

// availableMB reports free plus buffer memory, which Linux can reclaim
func availableMB() uint64 {
	var info syscall.Sysinfo_t
	if err := syscall.Sysinfo(&info); err != nil {
		log.Printf("availableMB: sysinfo failed: %v", err)
		return 0
	}
	unit := uint64(info.Unit)
	return (uint64(info.Freeram) + uint64(info.Bufferram)) * unit >> 20
}
