// Package rtlog implements the sequencer's hot-path logger.
//
// Every line is prefixed with the caller's CPU, its scheduling priority,
// and the elapsed time since the run started, matching the format the
// sequencer this system is modeled on uses for its syslog output:
//
//	CPU: <n>, Priority: <d>, Elapsed: <sec>.<nsec>, <message>
//
// The logger is deliberately not built on log/slog: slog's Record and
// handler machinery allocate per call, and the service runtime calls into
// this logger from a real-time task immediately after completing its
// work window. A preallocated per-call buffer keeps the hot path
// allocation-free. Ambient, non-real-time code (config loading, the
// control endpoint, the MQTT emitter) uses log/slog instead — see
// DESIGN.md.
package rtlog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/neo4reo/real-timely/internal/rtpriority"
	"github.com/neo4reo/real-timely/internal/rtclock"
)

// Logger writes prefixed lines to an underlying writer, guarded by a
// mutex (the sink is shared across every service task). Each Logger owns
// one reusable buffer; formatting never allocates beyond what
// fmt.Fprintf itself needs for the variadic arguments.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	clock rtclock.Clock
	buf   bytes.Buffer
}

// New returns a Logger writing to out, with elapsed time measured from
// clock's reference point.
func New(out io.Writer, clock rtclock.Clock) *Logger {
	return &Logger{out: out, clock: clock}
}

// NewStderr returns a Logger writing to os.Stderr.
func NewStderr(clock rtclock.Clock) *Logger {
	return New(os.Stderr, clock)
}

// NowElapsedSeconds returns the seconds elapsed since the logger's clock
// reference point, for callers that need to bracket a work invocation's
// timing themselves (the service runtime uses this to compute and log
// each work invocation's elapsed time).
func (l *Logger) NowElapsedSeconds() float64 {
	return l.clock.ElapsedSeconds()
}

// Line writes one prefixed log line. priorityDescending is the service's
// 1-is-highest priority index; pass 0 for lines emitted by the sequencer
// itself (which always runs at the top priority).
func (l *Logger) Line(priorityDescending int, format string, args ...any) {
	cpu := rtpriority.CurrentCPU()
	sec, nsec := rtclock.Split(l.clock.Elapsed())

	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Reset()
	fmt.Fprintf(&l.buf, "CPU: %d, Priority: %d, Elapsed: %d.%09d, ", cpu, priorityDescending, sec, nsec)
	fmt.Fprintf(&l.buf, format, args...)
	l.buf.WriteByte('\n')
	l.out.Write(l.buf.Bytes())
}

// Assignment writes the fixed assignment-format line required by
// spec.md: a record of the frame count and capture start time, emitted
// once by the capture stage's setup.
func (l *Logger) Assignment(frameCount uint64, captureStartSeconds float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Reset()
	fmt.Fprintf(&l.buf,
		"[COURSE #:4][Final Project][Frame Count: %d] [Image Capture Start Time: %f]\n",
		frameCount, captureStartSeconds)
	l.out.Write(l.buf.Bytes())
}
