package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogInfo wraps the zap logger shared by a binary
type LogInfo struct {
	log       *zap.Logger
	debugMode bool
	mu        sync.Mutex
}

var (
	// Log global logger, set by Initialize or SetNewNop
	Log = newNop()
)

// Initialize build a logger writing INFO..ERROR as JSON to stdout and a per-day file,
// WARN and DEBUG to the console. An empty logDir skips the file sink.
func Initialize(serviceName, logDir string) *LogInfo {
	return InitializeTo(serviceName, logDir, os.Stdout)
}

// InitializeTo Initialize with console output sent to console instead of stdout
func InitializeTo(serviceName, logDir string, console io.Writer) *LogInfo {
	l := new(LogInfo)
	out := zapcore.AddSync(console)

	infoSinks := []zapcore.WriteSyncer{out}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			panic(fmt.Sprintf("Failed to create log directory: %v", err))
		}
		date := time.Now().Format("2006-01-02")
		infoSinks = append(infoSinks, getFileWriter(filepath.Join(logDir, fmt.Sprintf("log_%s.log", date))))
	}

	infoErrorCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.NewMultiWriteSyncer(infoSinks...),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= zap.InfoLevel && level <= zap.ErrorLevel && level != zap.WarnLevel
		}),
	)

	debugCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		out,
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level == zapcore.DebugLevel && l.isDebug()
		}),
	)

	warnCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		out,
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level == zapcore.WarnLevel
		}),
	)

	l.log = zap.New(zapcore.NewTee(infoErrorCore, debugCore, warnCore),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.Fields(zap.String("service", serviceName)),
	)
	return l
}

// SetNewNop replace the global logger with a silent one (tests)
func SetNewNop() {
	Log = newNop()
}

func newNop() *LogInfo {
	return &LogInfo{log: zap.NewNop()}
}

func getFileWriter(logFile string) zapcore.WriteSyncer {
	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		panic(fmt.Sprintf("Failed to open or create log file: %v", err))
	}
	return zapcore.AddSync(file)
}

func (l *LogInfo) isDebug() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debugMode
}

// SetDebugMode set the log debug mode
func (l *LogInfo) SetDebugMode(status bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugMode = status
}

// Info INFO level
func (l *LogInfo) Info(msg string, fields ...zap.Field) {
	l.log.Info(msg, fields...)
}

// Infof INFO level with a trailing value
func (l *LogInfo) Infof(msg string, info interface{}, fields ...zap.Field) {
	l.log.Info(fmt.Sprintf("%s %v", msg, info), fields...)
}

// Error ERROR level
func (l *LogInfo) Error(msg string, fields ...zap.Field) {
	l.log.Error(msg, fields...)
}

// Errorf ERROR level with a trailing error
func (l *LogInfo) Errorf(msg string, err error, fields ...zap.Field) {
	l.log.Error(fmt.Sprintf("%s %v", msg, err), fields...)
}

// Debug DEBUG level, only written while debug mode is on
func (l *LogInfo) Debug(msg string, fields ...zap.Field) {
	l.log.Debug(msg, fields...)
}

// Warn WARN level
func (l *LogInfo) Warn(msg string, fields ...zap.Field) {
	l.log.Warn(msg, fields...)
}

// Sync flush buffered entries
func (l *LogInfo) Sync() {
	if err := l.log.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sync logger: %v\n", err)
	}
}

// Fatal log at ERROR, flush and exit
func (l *LogInfo) Fatal(msg string, fields ...zap.Field) {
	l.log.Error(msg, fields...)
	l.Sync()
	os.Exit(1)
}
