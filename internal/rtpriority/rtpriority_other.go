//go:build !linux

// Non-Linux build: the sequencer's real-time scheduling model is
// Linux-specific (SCHED_FIFO + CPU affinity has no portable equivalent).
// These stubs let the rest of the module build and let tests exercise
// the pipeline/sequencer logic on a developer's non-Linux machine; they
// are never what ships to the target Raspberry Pi class hardware.
package rtpriority

import "errors"

var errUnsupported = errors.New("rtpriority: real-time scheduling is only supported on linux")

func MaxFIFOPriority() int { return 99 }

func PinAndPrioritize(cpu int, priorityDescending int) error { return errUnsupported }

func IsCallerRealTime() (bool, error) { return false, errUnsupported }

func CurrentCPU() int { return -1 }
