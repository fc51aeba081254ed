package config

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 全局日志，初始化前为空实现，测试中无需初始化
var Logger = zap.NewNop().Sugar()

// InitLogger 初始化日志: 文件(JSON, 按大小滚动) + 控制台
func InitLogger(conf Config) error {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if err := os.MkdirAll(conf.LogDir, 0o755); err != nil {
		return err
	}

	// 文件日志核心
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(conf.LogDir, "app.log"),
			MaxSize:    100, // MB
			MaxBackups: 30,
			MaxAge:     90, // days
			Compress:   true,
		}),
		zap.InfoLevel,
	)

	consoleLevel := zap.DebugLevel
	if conf.IsProduction() {
		consoleLevel = zap.InfoLevel
	}

	// 控制台日志核心
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		consoleLevel,
	)

	core := zapcore.NewTee(fileCore, consoleCore)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	Logger = logger.Sugar()
	return nil
}
