package schemgen

import "time"

// ModeFlag is a log severity.  Messages below the current mode are dropped.
type ModeFlag uint

const (
	DebugMode ModeFlag = iota
	InfoMode
	WarningMode
	ErrorMode
	CriticalMode
	SilentMode
)

var mode = InfoMode

// Logger is the sink behind the package-level logging functions.  Every method takes
// fmt.Printf style arguments.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Criticalf(format string, args ...interface{})

	// Shutdown flushes and closes any open log file.
	Shutdown()
}

// SetLogMode drops every message less severe than newMode.  SilentMode drops everything.
func SetLogMode(newMode ModeFlag) {
	mode = newMode
}

func enabled(m ModeFlag) bool {
	return mode <= m
}

func Debugf(format string, args ...interface{}) {
	if enabled(DebugMode) {
		logger.Debugf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if enabled(InfoMode) {
		logger.Infof(format, args...)
	}
}

func Warningf(format string, args ...interface{}) {
	if enabled(WarningMode) {
		logger.Warningf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if enabled(ErrorMode) {
		logger.Errorf(format, args...)
	}
}

func Criticalf(format string, args ...interface{}) {
	if enabled(CriticalMode) {
		logger.Criticalf(format, args...)
	}
}

// TimeLog stamps messages with the time elapsed since it was created, e.g.
//
//	timedLog := NewTimeLog()
//	// sample, tile or copy voxels
//	timedLog.Infof("wrote %d tiles", n)
type TimeLog struct {
	start time.Time
}

func NewTimeLog() TimeLog {
	return TimeLog{start: time.Now()}
}

func (t TimeLog) stamp(format string, args []interface{}) (string, []interface{}) {
	return format + ": %s\n", append(args, time.Since(t.start))
}

func (t TimeLog) Debugf(format string, args ...interface{}) {
	if enabled(DebugMode) {
		f, a := t.stamp(format, args)
		logger.Debugf(f, a...)
	}
}

func (t TimeLog) Infof(format string, args ...interface{}) {
	if enabled(InfoMode) {
		f, a := t.stamp(format, args)
		logger.Infof(f, a...)
	}
}

var processStart = time.Now()

// TimeInfof logs at Info level with the time since process start appended.
func TimeInfof(format string, args ...interface{}) {
	if enabled(InfoMode) {
		logger.Infof(format+" [%s]\n", append(args, time.Since(processStart))...)
	}
}
