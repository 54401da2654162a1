package cmd

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// bootstrapLogger 启动阶段及一次性命令使用的控制台日志器
var bootstrapLogger *zap.Logger

func init() {
	bootstrapLogger = newConsoleLogger(os.Getenv("DEBUG") != "")
}

// newConsoleLogger colored console logger on stderr, keeping stdout free for command output
// newConsoleLogger 输出到 stderr 的彩色控制台日志器，stdout 留给命令输出
func newConsoleLogger(debug bool) *zap.Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), level)
	return zap.New(core, zap.AddCaller())
}
