package log

import "io"

// Nop returns a logger that discards all output. Handy for tests and for
// library callers that have no logging configured.
func Nop() LoggerService {
	return &LoggerServiceImpl{
		level:  Fatal + 1,
		writer: io.Discard,
	}
}
