// Package logger provides the level- and category-filtered logging used
// throughout dip. The level/category model mirrors a conventional debug-tag
// logger, but the backend is go.uber.org/zap rather than raw fmt.Printf, so
// output is structured and safe to call from library code embedded in a
// larger zap-based application.
package logger

import (
	"sync"

	"go.uber.org/zap"
)

type LogLevel int

const (
	LevelSilent LogLevel = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

var (
	mu           sync.RWMutex
	currentLevel = LevelSilent
	categories   = make(map[string]bool)
	base         = newZapLogger()
)

func init() {
	initConfig()
}

func newZapLogger() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		// zap's development config is not expected to fail to build; fall
		// back to a no-op logger rather than panic from an init path.
		l = zap.NewNop()
	}
	return l.Sugar()
}

// SetLevel changes the global log level.
func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
}

// EnableCategory allows log lines tagged with category to be emitted.
func EnableCategory(category string) {
	mu.Lock()
	defer mu.Unlock()
	categories[category] = true
}

// DisableCategory stops log lines tagged with category from being emitted.
func DisableCategory(category string) {
	mu.Lock()
	defer mu.Unlock()
	delete(categories, category)
}

func shouldLog(level LogLevel, category string) bool {
	mu.RLock()
	defer mu.RUnlock()

	if currentLevel == LevelSilent {
		return false
	}
	if level > currentLevel {
		return false
	}
	if len(categories) > 0 && category != "" {
		return categories[category]
	}
	return true
}

func Error(category string, format string, args ...interface{}) {
	if shouldLog(LevelError, category) {
		base.Errorf("[%s] "+format, prepend(category, args)...)
	}
}

func Warn(category string, format string, args ...interface{}) {
	if shouldLog(LevelWarn, category) {
		base.Warnf("[%s] "+format, prepend(category, args)...)
	}
}

func Info(category string, format string, args ...interface{}) {
	if shouldLog(LevelInfo, category) {
		base.Infof("[%s] "+format, prepend(category, args)...)
	}
}

func Debug(category string, format string, args ...interface{}) {
	if shouldLog(LevelDebug, category) {
		base.Debugf("[%s] "+format, prepend(category, args)...)
	}
}

func Trace(category string, format string, args ...interface{}) {
	if shouldLog(LevelTrace, category) {
		base.Debugf("[%s] (trace) "+format, prepend(category, args)...)
	}
}

func prepend(category string, args []interface{}) []interface{} {
	out := make([]interface{}, 0, len(args)+1)
	out = append(out, category)
	out = append(out, args...)
	return out
}
