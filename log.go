package dynarr

import (
	"os"

	"go.uber.org/zap"
)

var logger = zap.NewNop()

// SetLogger sets the logger used to report aborts and fallbacks.
func SetLogger(l *zap.Logger) {
	logger = l
}

// abortExitCode matches the status of a process killed by SIGABRT.
const abortExitCode = 134

// abort terminates the process. It is reserved for states that cannot be
// unwound safely: allocator exhaustion behind an infallible call, and a panic
// raised while cleaning up after another panic.
var abort = func(msg string, fields ...zap.Field) {
	logger.Error(msg, fields...)
	_ = logger.Sync()
	os.Exit(abortExitCode)
}

// abortOnPanic must be deferred directly. It turns a panic raised by the
// rest of the calling function into an abort.
func abortOnPanic(msg string) {
	if r := recover(); r != nil {
		abort(msg, zap.Any("panic", r))
	}
}

// cleanupOrAbort runs cleanup code on an unwinding path.
func cleanupOrAbort(cleanup func()) {
	defer abortOnPanic("dynarr: panic during cleanup after a panic")
	cleanup()
}
