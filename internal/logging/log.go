package logging

import (
	"io"
	"log"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

const DefaultFlags = log.LstdFlags

var level atomic.Int32

func init() {
	level.Store(int32(LevelInfo))
}

// Init sets the output writer and log flags. A nil writer keeps the current one.
func Init(w io.Writer, flags int) {
	if w != nil {
		log.SetOutput(w)
	}
	log.SetFlags(flags)
}

// SetLevel drops messages below l.
func SetLevel(l Level) {
	level.Store(int32(l))
}

// ParseLevel maps debug/info/warn/error to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "debg":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error", "erro":
		return LevelError
	default:
		return LevelInfo
	}
}

func enabled(l Level) bool {
	return l >= Level(level.Load())
}

func Debug(format string, v ...interface{}) {
	if enabled(LevelDebug) {
		log.Printf("[DEBG] "+format+"\n", v...)
	}
}

func Info(format string, v ...interface{}) {
	if enabled(LevelInfo) {
		log.Printf("[INFO] "+format+"\n", v...)
	}
}

func Warn(format string, v ...interface{}) {
	if enabled(LevelWarn) {
		log.Printf("[WARN] "+format+"\n", v...)
	}
}

func Error(format string, v ...interface{}) {
	if enabled(LevelError) {
		log.Printf("[ERRO] "+format+"\n", v...)
	}
}
