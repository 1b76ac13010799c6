package chain

import (
	"log"

	"github.com/btcsuite/btclog"
)

type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	log.Print(string(p))
	return len(p), nil
}

var chainLog = func() btclog.Logger {
	l := btclog.NewBackend(logWriter{}).Logger("CHNE")
	l.SetLevel(btclog.LevelInfo)
	return l
}()

// SetLogLevel adjusts the verbosity of this package's logger.
func SetLogLevel(level btclog.Level) {
	chainLog.SetLevel(level)
}
