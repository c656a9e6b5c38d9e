package log

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide logger. It is a no-op until InitLogger runs.
var Logger = zap.NewNop()

var level = zap.NewAtomicLevelAt(zap.InfoLevel)

// InitLogger builds the JSON production logger, or the console logger in dev mode.
func InitLogger(dev bool) {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.MessageKey = "message"
		cfg.EncoderConfig.NameKey = "logger"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.Sampling = nil
	}
	cfg.Level = level

	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	Logger = l
}

// Named scopes the global logger to the MCP server name.
func Named(mcpName string) {
	Logger = Logger.Named(mcpName).With(zap.String("mcp_name", mcpName))
}

// SetLevel changes the level of every logger built by InitLogger.
// Unknown names fall back to INFO.
func SetLevel(name string) {
	level.SetLevel(ParseLevel(name))
}

// Level reports the current level.
func Level() zapcore.Level {
	return level.Level()
}

// ParseLevel maps DEBUG, INFO, WARN/WARNING, ERROR and CRITICAL to zap levels.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return zap.DebugLevel
	case "WARN", "WARNING":
		return zap.WarnLevel
	case "ERROR":
		return zap.ErrorLevel
	case "CRITICAL", "FATAL":
		return zap.DPanicLevel
	default:
		return zap.InfoLevel
	}
}

func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}
