package dvid

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/natefinch/lumberjack"
)

// LogConfig is the [logging] section of the TOML configuration.
type LogConfig struct {
	Logfile    string
	Level      string
	MaxSize    int `toml:"max_log_size"`    // megabytes
	MaxAge     int `toml:"max_log_age"`     // days
	MaxBackups int `toml:"max_log_backups"` // 0 keeps every rotated file
}

// SetLogger applies the configured level and, if a log file is given, sends messages
// to it with size and age based rotation.  Without a log file messages go to stderr.
func (c *LogConfig) SetLogger() error {
	if c == nil {
		return nil
	}
	if c.Level != "" {
		m, err := ModeFromString(c.Level)
		if err != nil {
			return err
		}
		SetLogMode(m)
	}
	if c.Logfile == "" {
		Debugf("No log file configured, logging to stderr.\n")
		return nil
	}
	fmt.Printf("Logging to %s\n", c.Logfile)
	SetLogger(NewWriterLogger(&lumberjack.Logger{
		Filename:   c.Logfile,
		MaxSize:    c.MaxSize,
		MaxAge:     c.MaxAge,
		MaxBackups: c.MaxBackups,
	}))
	return nil
}

// writerLogger prefixes messages with their severity.  log.Logger serializes writes.
type writerLogger struct {
	out    *log.Logger
	closer io.Closer
}

// NewWriterLogger returns a Logger writing timestamped lines to w, or to stderr if w is
// nil.  Shutdown closes w if it is an io.Closer.
func NewWriterLogger(w io.Writer) Logger {
	if w == nil {
		return &writerLogger{out: log.New(os.Stderr, "", log.LstdFlags)}
	}
	l := &writerLogger{out: log.New(w, "", log.LstdFlags)}
	if c, ok := w.(io.Closer); ok {
		l.closer = c
	}
	return l
}

func (l *writerLogger) printf(m ModeFlag, format string, args []interface{}) {
	l.out.Printf(" "+m.String()+" "+format, args...)
}

func (l *writerLogger) Debugf(format string, args ...interface{}) {
	l.printf(DebugMode, format, args)
}

func (l *writerLogger) Infof(format string, args ...interface{}) {
	l.printf(InfoMode, format, args)
}

func (l *writerLogger) Warningf(format string, args ...interface{}) {
	l.printf(WarningMode, format, args)
}

func (l *writerLogger) Errorf(format string, args ...interface{}) {
	l.printf(ErrorMode, format, args)
}

func (l *writerLogger) Criticalf(format string, args ...interface{}) {
	l.printf(CriticalMode, format, args)
}

func (l *writerLogger) Shutdown() {
	if l.closer == nil {
		return
	}
	l.out.Printf(" INFO Closing log file\n")
	if err := l.closer.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Unable to close log file: %v\n", err)
	}
}
