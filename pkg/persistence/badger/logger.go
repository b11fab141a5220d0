package badger

import (
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// badgerLogger routes badger's printf style logging into zap. Badger's info
// chatter (compactions, table flushes) goes to debug.
type badgerLogger struct {
	sugar *zap.SugaredLogger
}

var _ badgerdb.Logger = (*badgerLogger)(nil)

func newBadgerLogger(logger *zap.Logger) *badgerLogger {
	return &badgerLogger{sugar: logger.Named("badger").Sugar()}
}

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	b.sugar.Error(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Warningf(format string, args ...interface{}) {
	b.sugar.Warn(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Infof(format string, args ...interface{}) {
	b.sugar.Debug(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Debugf(format string, args ...interface{}) {
	b.sugar.Debug(fmt.Sprintf(format, args...))
}
