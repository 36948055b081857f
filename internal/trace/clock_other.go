//go:build !linux

package trace

import "time"

var clockBase = time.Now()

func monotonicNow() uint64 {
	return uint64(time.Since(clockBase))
}
