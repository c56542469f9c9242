package temporal

import (
	"io"
	"log"
	"sync/atomic"
)

// ops carries hard load failures, diag carries recovered load problems
// and world-location refresh failures, trace carries per-query lookups.
var (
	opsLogger   atomic.Pointer[log.Logger]
	diagLogger  atomic.Pointer[log.Logger]
	traceLogger atomic.Pointer[log.Logger]
)

// SetLogWriters configures the three logging streams for the temporal package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	opsLogger.Store(newLogger(ops))
	diagLogger.Store(newLogger(diag))
	traceLogger.Store(newLogger(trace))
}

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "[temporal] ", log.LstdFlags|log.Lmicroseconds)
}

func opsf(format string, args ...any) {
	if l := opsLogger.Load(); l != nil {
		l.Printf(format, args...)
	}
}

func diagf(format string, args ...any) {
	if l := diagLogger.Load(); l != nil {
		l.Printf(format, args...)
	}
}

func tracef(format string, args ...any) {
	if l := traceLogger.Load(); l != nil {
		l.Printf(format, args...)
	}
}
