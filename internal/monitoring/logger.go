// Package monitoring holds the process-wide log hook and the Prometheus
// collectors shared by the grid packages.
package monitoring

import (
	"log"
	"sync/atomic"
)

type logFunc func(format string, v ...any)

var logger atomic.Value

func init() {
	logger.Store(logFunc(log.Printf))
}

// Logf writes through the current logger. It defaults to log.Printf.
func Logf(format string, v ...any) {
	logger.Load().(logFunc)(format, v...)
}

// SetLogger replaces the logger used by Logf. Passing nil mutes it.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		f = func(string, ...any) {}
	}
	logger.Store(logFunc(f))
}
