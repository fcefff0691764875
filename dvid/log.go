package dvid

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ModeFlag is a log severity.  Messages below the current mode are dropped.
type ModeFlag uint32

const (
	DebugMode ModeFlag = iota
	InfoMode
	WarningMode
	ErrorMode
	CriticalMode
	SilentMode
)

var modeNames = [...]string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL", "SILENT"}

func (m ModeFlag) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("ModeFlag(%d)", uint32(m))
}

// ModeFromString parses a severity name as written in the [logging] level setting.
func ModeFromString(s string) (ModeFlag, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return ModeFlag(i), nil
		}
	}
	return InfoMode, fmt.Errorf("unknown log level %q", s)
}

// Verbose asks for extra diagnostics that are too costly for debug logging alone, e.g.,
// dumping memory pool buckets on shutdown.
var Verbose bool

var mode atomic.Uint32

func init() {
	mode.Store(uint32(InfoMode))
}

// Logger receives messages that passed the severity filter.  Messages from concurrent
// mesh workers arrive in parallel, so implementations must be safe for concurrent use.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Criticalf(format string, args ...interface{})

	// Shutdown flushes and closes any log file.
	Shutdown()
}

var (
	loggerMu sync.RWMutex
	logger   Logger = NewWriterLogger(nil)
)

// SetLogMode sets the minimum severity that is logged.  SetLogMode(WarningMode) keeps
// Warningf, Errorf and Criticalf messages.  SilentMode drops everything.
func SetLogMode(m ModeFlag) {
	mode.Store(uint32(m))
}

// LogMode returns the minimum severity that is logged.
func LogMode() ModeFlag {
	return ModeFlag(mode.Load())
}

// SetLogger replaces the package logger and returns the previous one, which is not
// shut down.
func SetLogger(l Logger) Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	old := logger
	logger = l
	return old
}

func currentLogger() Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

func logf(m ModeFlag, format string, args []interface{}) {
	if m < LogMode() {
		return
	}
	l := currentLogger()
	switch m {
	case DebugMode:
		l.Debugf(format, args...)
	case InfoMode:
		l.Infof(format, args...)
	case WarningMode:
		l.Warningf(format, args...)
	case ErrorMode:
		l.Errorf(format, args...)
	default:
		l.Criticalf(format, args...)
	}
}

func Debugf(format string, args ...interface{})    { logf(DebugMode, format, args) }
func Infof(format string, args ...interface{})     { logf(InfoMode, format, args) }
func Warningf(format string, args ...interface{})  { logf(WarningMode, format, args) }
func Errorf(format string, args ...interface{})    { logf(ErrorMode, format, args) }
func Criticalf(format string, args ...interface{}) { logf(CriticalMode, format, args) }

// Shutdown closes the log file, if any.
func Shutdown() {
	currentLogger().Shutdown()
}

// TimeLog appends the time elapsed since its creation to each message:
//
//	tlog := NewTimeLog()
//	...
//	tlog.Debugf("meshed block %s", pos)  // "meshed block (1,2,3): 1.2ms"
type TimeLog struct {
	start time.Time
}

func NewTimeLog() TimeLog {
	return TimeLog{time.Now()}
}

// Elapsed returns the time since the TimeLog was created.
func (t TimeLog) Elapsed() time.Duration {
	return time.Since(t.start)
}

func (t TimeLog) logf(m ModeFlag, format string, args []interface{}) {
	logf(m, format+": %s\n", append(args, time.Since(t.start)))
}

func (t TimeLog) Debugf(format string, args ...interface{})   { t.logf(DebugMode, format, args) }
func (t TimeLog) Infof(format string, args ...interface{})    { t.logf(InfoMode, format, args) }
func (t TimeLog) Warningf(format string, args ...interface{}) { t.logf(WarningMode, format, args) }
