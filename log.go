package chaincore

import (
	"log"

	"github.com/btcsuite/btclog"
)

// logWriter adapts btclog's backend to the standard log package, the same
// bridge blkchain/btcnode used to fold btcsuite's peer logger into plain
// stdlib logging. This is the root package's logger; the chain engine
// (package chain) logs through its own logger, set by chain.SetLogLevel,
// and nothing in this package currently logs through this one.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	log.Print(string(p))
	return len(p), nil
}

var chainLog = func() btclog.Logger {
	l := btclog.NewBackend(logWriter{}).Logger("CHAIN")
	l.SetLevel(btclog.LevelInfo)
	return l
}()

// SetLogLevel adjusts the verbosity of the root package's logger. It does
// not affect the chain engine's logging; use chain.SetLogLevel for that.
func SetLogLevel(level btclog.Level) {
	chainLog.SetLevel(level)
}
