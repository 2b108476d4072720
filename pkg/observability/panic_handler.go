package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic logs a recovered panic with its stack trace and swallows it.
// Defer it at the top of a goroutine so one panicking worker cannot take the
// whole process down; HTTP handler panics are covered separately by the
// recovery middleware.
func RecoverPanic(logger *Logger, where string) {
	if r := recover(); r != nil {
		logger.WithFields(map[string]interface{}{
			"panic": fmt.Sprint(r),
			"where": where,
			"stack": string(debug.Stack()),
		}).Error("panic recovered")
	}
}
