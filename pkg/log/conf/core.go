package conf

// Core selects which logging backend implements the Logger interface.
type Core string

const (
	LogrusCore Core = "logrus"
	ZapCore    Core = "zap"
)

// Level is the ambient logging level, independent of the chosen Core.
type Level string

const (
	TraceLevel Level = "trace"
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
	FatalLevel Level = "fatal"
)

// Formatter selects the on-wire encoding of log lines.
type Formatter string

const (
	JSONFormatter    Formatter = "json"
	ConsoleFormatter Formatter = "console"
)

// LogConfig configures a logger instance.
type LogConfig struct {
	Core      Core      `yaml:"core" json:"core"`
	Level     Level     `yaml:"level" json:"level"`
	Formatter Formatter `yaml:"formatter" json:"formatter"`
}

// DefaultConfig returns the configuration used when nothing else is
// specified: logrus core, info level, JSON formatting.
func DefaultConfig() *LogConfig {
	return &LogConfig{
		Core:      LogrusCore,
		Level:     InfoLevel,
		Formatter: JSONFormatter,
	}
}
