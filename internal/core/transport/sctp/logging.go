package sctp

import (
	"fmt"

	"github.com/pion/logging"

	"github.com/dep2p/go-scamper/pkg/lib/log"
)

// loggerFactory 把 pion 日志接到 pkg/lib/log
type loggerFactory struct{}

var _ logging.LoggerFactory = loggerFactory{}

func (loggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return leveled{l: log.Logger("transport/sctp/" + scope)}
}

type leveled struct {
	l *log.LazyLogger
}

// pion 的 trace 级别并入 debug
func (p leveled) Trace(msg string)                          { p.l.Debug(msg) }
func (p leveled) Tracef(format string, args ...interface{}) { p.l.Debug(fmt.Sprintf(format, args...)) }
func (p leveled) Debug(msg string)                          { p.l.Debug(msg) }
func (p leveled) Debugf(format string, args ...interface{}) { p.l.Debug(fmt.Sprintf(format, args...)) }
func (p leveled) Info(msg string)                           { p.l.Info(msg) }
func (p leveled) Infof(format string, args ...interface{})  { p.l.Info(fmt.Sprintf(format, args...)) }
func (p leveled) Warn(msg string)                           { p.l.Warn(msg) }
func (p leveled) Warnf(format string, args ...interface{})  { p.l.Warn(fmt.Sprintf(format, args...)) }
func (p leveled) Error(msg string)                          { p.l.Error(msg) }
func (p leveled) Errorf(format string, args ...interface{}) { p.l.Error(fmt.Sprintf(format, args...)) }
