package log

import (
	"os"
	"strconv"
	"sync"

	"github.com/templestuart/lotkeeper/env"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once      sync.Once
	appLogger AppLogger
)

// AppLogger is the key/value logging interface used across lotkeeper.
type AppLogger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Panic(msg string, keysAndValues ...interface{})
	Fatal(msg string, keysAndValues ...interface{})
	SetDeploymentLevel(depl string)
}

func NewLogger() (AppLogger, error) {
	atom := zap.NewAtomicLevel()
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.StacktraceKey = "stack"
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	debug, _ := strconv.ParseBool(env.GetVar("DEBUG"))
	if debug {
		atom.SetLevel(zap.DebugLevel)
	} else {
		atom.SetLevel(zap.InfoLevel)
	}

	// console encoder only for now - we may want to shift
	// to full JSON later on...
	zl := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		atom,
	),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.AddCaller(),
		zap.AddCallerSkip(2),
	)

	return &logger{zap: zl.Sugar()}, nil
}

type logger struct {
	zap  *zap.SugaredLogger
	depl string
}

func (l *logger) SetDeploymentLevel(depl string) {
	l.depl = depl
}

func (l *logger) kv(keysAndValues []interface{}) []interface{} {
	if l.depl == "" {
		return keysAndValues
	}
	return append(keysAndValues, "deployment", l.depl)
}

func (l *logger) Debug(msg string, keysAndValues ...interface{}) {
	l.zap.Debugw(msg, l.kv(keysAndValues)...)
}

func (l *logger) Info(msg string, keysAndValues ...interface{}) {
	l.zap.Infow(msg, l.kv(keysAndValues)...)
}

func (l *logger) Warn(msg string, keysAndValues ...interface{}) {
	l.zap.Warnw(msg, l.kv(keysAndValues)...)
}

func (l *logger) Error(msg string, keysAndValues ...interface{}) {
	l.zap.Errorw(msg, l.kv(keysAndValues)...)
}

func (l *logger) Panic(msg string, keysAndValues ...interface{}) {
	l.zap.Panicw(msg, l.kv(keysAndValues)...)
}

func (l *logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.zap.Fatalw(msg, l.kv(keysAndValues)...)
}

// Logger returns the process-wide logger, initializing it on first use.
func Logger() AppLogger {
	once.Do(func() {
		var err error
		if appLogger, err = NewLogger(); err != nil {
			panic(err)
		}
	})
	return appLogger
}

func Debug(msg string, keysAndValues ...interface{}) {
	Logger().Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...interface{}) {
	Logger().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...interface{}) {
	Logger().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...interface{}) {
	Logger().Error(msg, keysAndValues...)
}

func Panic(msg string, keysAndValues ...interface{}) {
	Logger().Panic(msg, keysAndValues...)
}

func Fatal(msg string, keysAndValues ...interface{}) {
	Logger().Fatal(msg, keysAndValues...)
}
