// Package log is the carrier core's structured-logging ambient stack: a
// thin re-export of github.com/luxfi/log.Logger plus a no-op implementation
// for tests and library consumers who don't want output. No package in this
// module calls fmt.Println directly — everything routes through an injected
// Logger.
package log

import (
	luxlog "github.com/luxfi/log"
)

// Logger is the interface every component in this module accepts for
// structured output. It is a direct alias of github.com/luxfi/log.Logger so
// real callers can pass their existing zap-backed logger straight through.
type Logger = luxlog.Logger

// NewNoOp returns a Logger that discards everything. Used by tests, and by
// any caller that constructs a runtime.CarrierRuntime without wiring a real
// logger.
func NewNoOp() Logger {
	return luxlog.NewNoOpLogger()
}
