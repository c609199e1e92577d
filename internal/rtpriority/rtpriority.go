//go:build linux

// Package rtpriority wraps the Linux real-time scheduling primitives the
// sequencer needs: pinning the calling OS thread to a CPU and assigning it
// a SCHED_FIFO priority. Every service task runs on its own locked OS
// thread (runtime.LockOSThread) so that these calls apply to exactly the
// thread executing that service's work loop.
//
// sched_setscheduler/sched_getscheduler/sched_getparam/
// sched_get_priority_max/sched_getcpu have no stable high-level wrapper
// across every architecture x/sys/unix supports, so they are invoked
// directly through unix.Syscall against the kernel's raw ABI (a schedParam
// struct matching struct sched_param{int sched_priority}). CPU affinity
// does have a stable wrapper (unix.SchedSetaffinity/unix.CPUSet) and is
// used as-is.
package rtpriority

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

const schedFIFO = 1 // SCHED_FIFO, stable across Linux architectures.

// schedParam mirrors struct sched_param from <sched.h>.
type schedParam struct {
	priority int32
}

func schedGetPriorityMax(policy int) (int, error) {
	r1, _, errno := unix.Syscall(unix.SYS_SCHED_GET_PRIORITY_MAX, uintptr(policy), 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(r1), nil
}

func schedSetscheduler(pid int, policy int, param *schedParam) error {
	_, _, errno := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER, uintptr(pid), uintptr(policy), uintptr(unsafe.Pointer(param)))
	if errno != 0 {
		return errno
	}
	return nil
}

func schedGetscheduler(pid int) (int, error) {
	r1, _, errno := unix.Syscall(unix.SYS_SCHED_GETSCHEDULER, uintptr(pid), 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(r1), nil
}

func schedGetparam(pid int) (schedParam, error) {
	var param schedParam
	_, _, errno := unix.Syscall(unix.SYS_SCHED_GETPARAM, uintptr(pid), uintptr(unsafe.Pointer(&param)), 0)
	if errno != 0 {
		return schedParam{}, errno
	}
	return param, nil
}

func schedGetcpu() (int, error) {
	// getcpu(2) takes cpu*, node*, tcache*; we only care about cpu.
	var cpu, node uint32
	_, _, errno := unix.Syscall(unix.SYS_GETCPU, uintptr(unsafe.Pointer(&cpu)), uintptr(unsafe.Pointer(&node)), 0)
	if errno != 0 {
		return -1, errno
	}
	return int(cpu), nil
}

// MaxFIFOPriority returns the highest SCHED_FIFO priority the kernel will
// accept, mirroring sched_get_priority_max(SCHED_FIFO) in the system this
// package's scheduling model is drawn from.
func MaxFIFOPriority() int {
	max, err := schedGetPriorityMax(schedFIFO)
	if err != nil {
		// SCHED_FIFO's range is fixed (1-99) on every Linux kernel; fall
		// back to the documented maximum rather than propagate an error
		// from a call that is not expected to fail.
		return 99
	}
	return max
}

// PinAndPrioritize locks the calling goroutine to its current OS thread,
// restricts that thread to cpu, and assigns it a SCHED_FIFO priority of
// MaxFIFOPriority()-priorityDescending. Callers must not unlock the OS
// thread afterward; the thread's scheduling class now matters for the
// lifetime of the calling goroutine.
//
// priorityDescending is 1-is-highest, matching Schedule's priority
// assignment (see internal/sequencer).
func PinAndPrioritize(cpu int, priorityDescending int) error {
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("rtpriority: SchedSetaffinity(cpu=%d): %w", cpu, err)
	}

	priority := MaxFIFOPriority() - priorityDescending
	if err := schedSetscheduler(0, schedFIFO, &schedParam{priority: int32(priority)}); err != nil {
		return fmt.Errorf("rtpriority: sched_setscheduler(priority=%d): %w", priority, err)
	}
	return nil
}

// IsCallerRealTime reports whether the calling OS thread is currently
// scheduled SCHED_FIFO at the maximum priority, mirroring
// validate_current_thread_is_real_time in the reference sequencer.
func IsCallerRealTime() (bool, error) {
	policy, err := schedGetscheduler(0)
	if err != nil {
		return false, fmt.Errorf("rtpriority: sched_getscheduler: %w", err)
	}
	if policy != schedFIFO {
		return false, nil
	}
	param, err := schedGetparam(0)
	if err != nil {
		return false, fmt.Errorf("rtpriority: sched_getparam: %w", err)
	}
	return int(param.priority) == MaxFIFOPriority(), nil
}

// CurrentCPU returns the CPU the calling goroutine's OS thread is
// currently executing on, for log-line prefixing. It never fails: on
// error it returns -1, which is acceptable for a diagnostic field.
func CurrentCPU() int {
	cpu, err := schedGetcpu()
	if err != nil {
		return -1
	}
	return cpu
}
