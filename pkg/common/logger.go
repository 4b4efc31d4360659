package common

import (
	"go.uber.org/zap"
)

// Logger 日志接口
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// ZapLogger 基于 zap 的日志实现
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger 创建日志器，使用进程级 zap logger (logger.New 会替换它)
func NewLogger(prefix string) Logger {
	return NewZapLogger(zap.L(), prefix)
}

// NewZapLogger 基于给定的 zap logger 创建带前缀的日志器
func NewZapLogger(base *zap.Logger, prefix string) Logger {
	if prefix != "" {
		base = base.Named(prefix)
	}
	return &ZapLogger{sugar: base.Sugar()}
}

// NewNopLogger 不输出任何内容，测试用
func NewNopLogger() Logger {
	return &ZapLogger{sugar: zap.NewNop().Sugar()}
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) {
	l.sugar.Debugf(msg, args...)
}

func (l *ZapLogger) Info(msg string, args ...interface{}) {
	l.sugar.Infof(msg, args...)
}

func (l *ZapLogger) Warn(msg string, args ...interface{}) {
	l.sugar.Warnf(msg, args...)
}

func (l *ZapLogger) Error(msg string, args ...interface{}) {
	l.sugar.Errorf(msg, args...)
}

func (l *ZapLogger) Fatal(msg string, args ...interface{}) {
	l.sugar.Fatalf(msg, args...)
}
