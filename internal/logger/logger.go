package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options 描述文件日志的轮转参数，Dir 为空时只输出到标准输出。
type Options struct {
	Dir        string
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func (o Options) rotation() *lumberjack.Logger {
	filename := strings.TrimSpace(o.Filename)
	if filename == "" {
		filename = "tangerine.log"
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(strings.TrimSpace(o.Dir), filename),
		MaxSize:    positiveOr(o.MaxSizeMB, 50),
		MaxBackups: positiveOr(o.MaxBackups, 5),
		MaxAge:     positiveOr(o.MaxAgeDays, 14),
		Compress:   o.Compress,
	}
}

// current 在 Init 之前为空，Z 会退回到控制台日志。
var current atomic.Pointer[zap.Logger]

var fallback = zap.New(
	zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stdout), zap.InfoLevel),
	zap.AddCaller(), zap.AddCallerSkip(1),
)

// Init 初始化全局日志，后续 Infow/Warnw 等都写到这里。
func Init(mode string, options Options) *zap.Logger {
	l := New(mode, options)
	current.Store(l)
	zap.ReplaceGlobals(l)
	return l
}

// New 创建日志实例：debug 模式用彩色控制台格式，其余模式输出 JSON 并按需写入轮转文件。
func New(mode string, options Options) *zap.Logger {
	level := zapcore.InfoLevel
	cfg := encoderConfig()
	var encoder zapcore.Encoder
	if strings.EqualFold(strings.TrimSpace(mode), "debug") {
		level = zapcore.DebugLevel
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	} else {
		encoder = zapcore.NewJSONEncoder(cfg)
	}

	out := zapcore.Lock(os.Stdout)
	if strings.TrimSpace(options.Dir) != "" {
		if err := os.MkdirAll(strings.TrimSpace(options.Dir), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "logger: file output disabled: %v\n", err)
		} else {
			out = zapcore.NewMultiWriteSyncer(out, zapcore.AddSync(options.rotation()))
		}
	}
	return zap.New(zapcore.NewCore(encoder, out, level), zap.AddCaller(), zap.AddCallerSkip(1))
}

// Z 返回当前日志实例，未初始化时返回控制台日志。
func Z() *zap.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return fallback
}

func S() *zap.SugaredLogger {
	return Z().Sugar()
}

// StdLogger 供只接受 *log.Logger 的调用方使用，如启动阶段的 Fatalf。
func StdLogger() *log.Logger {
	return zap.NewStdLog(Z())
}

func Debugw(message string, kv ...interface{}) { S().Debugw(message, kv...) }

func Infow(message string, kv ...interface{}) { S().Infow(message, kv...) }

func Warnw(message string, kv ...interface{}) { S().Warnw(message, kv...) }

func Errorw(message string, kv ...interface{}) { S().Errorw(message, kv...) }

func Sync() {
	_ = Z().Sync()
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

func positiveOr(value, def int) int {
	if value > 0 {
		return value
	}
	return def
}
