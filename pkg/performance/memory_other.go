//go:build !linux

package performance

func availableMB() uint64 { return 0 }
