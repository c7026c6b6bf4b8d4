// Package logging provides categorized logging for codescout, backed by zap.
// Each subsystem logs through a named child logger so output can be filtered
// per category with the --verbose flag or the logging config section.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryAgent   Category = "agent"   // Task loop, turn lifecycle
	CategoryTools   Category = "tools"   // Tool registry and dispatch
	CategoryPlan    Category = "plan"    // Plan generation and execution
	CategoryPending Category = "pending" // Pending-prompt correlation
	CategoryLLM     Category = "llm"     // Model gateway calls, rate limiting
	CategoryIndex   Category = "index"   // Vector index build and query
	CategoryWorld   Category = "world"   // Filesystem scan, symbol extraction
	CategoryTactile Category = "tactile" // Command execution, file writes
	CategoryServer  Category = "server"  // WebSocket transport
	CategoryConfig  Category = "config"  // Configuration loading
)

var (
	mu      sync.RWMutex
	base    *zap.SugaredLogger
	loggers = make(map[Category]*zap.SugaredLogger)
)

func init() {
	// Until Init is called, logging is a no-op. Tests and library consumers
	// get silence by default; the CLI wires a real logger at startup.
	base = zap.NewNop().Sugar()
}

// Init builds the process-wide logger. Verbose enables debug-level output.
// Safe to call more than once; the last call wins.
func Init(verbose bool) error {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	SetLogger(logger)
	return nil
}

// SetLogger replaces the process-wide logger. Used by Init and by tests
// that want to capture output with an observer core.
func SetLogger(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = logger.Sugar()
	loggers = make(map[Category]*zap.SugaredLogger)
}

// Sync flushes any buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

// Get returns the logger for a category.
func Get(c Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[c]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[c]; ok {
		return l
	}
	l := base.Named(string(c))
	loggers[c] = l
	return l
}

// Per-category helpers: Xxx logs at info, XxxDebug at debug. Error/warn
// paths use Get(category) directly.

func Agent(format string, args ...any)        { Get(CategoryAgent).Infof(format, args...) }
func AgentDebug(format string, args ...any)   { Get(CategoryAgent).Debugf(format, args...) }
func Tools(format string, args ...any)        { Get(CategoryTools).Infof(format, args...) }
func ToolsDebug(format string, args ...any)   { Get(CategoryTools).Debugf(format, args...) }
func Plan(format string, args ...any)         { Get(CategoryPlan).Infof(format, args...) }
func PlanDebug(format string, args ...any)    { Get(CategoryPlan).Debugf(format, args...) }
func Pending(format string, args ...any)      { Get(CategoryPending).Infof(format, args...) }
func PendingDebug(format string, args ...any) { Get(CategoryPending).Debugf(format, args...) }
func LLM(format string, args ...any)          { Get(CategoryLLM).Infof(format, args...) }
func LLMDebug(format string, args ...any)     { Get(CategoryLLM).Debugf(format, args...) }
func Index(format string, args ...any)        { Get(CategoryIndex).Infof(format, args...) }
func IndexDebug(format string, args ...any)   { Get(CategoryIndex).Debugf(format, args...) }
func World(format string, args ...any)        { Get(CategoryWorld).Infof(format, args...) }
func WorldDebug(format string, args ...any)   { Get(CategoryWorld).Debugf(format, args...) }
func Tactile(format string, args ...any)      { Get(CategoryTactile).Infof(format, args...) }
func TactileDebug(format string, args ...any) { Get(CategoryTactile).Debugf(format, args...) }
func Server(format string, args ...any)       { Get(CategoryServer).Infof(format, args...) }
func ServerDebug(format string, args ...any)  { Get(CategoryServer).Debugf(format, args...) }
