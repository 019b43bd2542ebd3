package logger

import "github.com/rs/zerolog"

// NewNop returns a logger that discards all output. Intended for tests.
func NewNop() Logger {
	zlog := zerolog.Nop()
	return &zerologLogger{
		logger: &zlog,
		fields: make(map[string]interface{}),
	}
}
