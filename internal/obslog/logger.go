// Package obslog builds the process-wide zerolog.Logger and stamps a
// per-load correlation id (load_id) onto load-scoped contexts, the
// same shape the teacher uses for per-request logging.
package obslog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

type ctxKey string

// LoadIDKey is the context key a load-scoped logger is stamped under.
const LoadIDKey ctxKey = "load_id"

// Config controls logger construction. It is independent of the
// catalog/runtimeconfig AliasSpec world; a Builder wires it in once at
// startup.
type Config struct {
	// Level is a zerolog level name: "debug", "info", "warn", "error".
	// Empty defaults to "info".
	Level string

	// Output is "stdout", "stderr", or a file path. Empty defaults to
	// stdout.
	Output string

	// Format is "json", "pretty", or "console" (auto-detect terminal).
	// Empty behaves like "console".
	Format string

	// Pretty forces console formatting regardless of Format or terminal
	// detection.
	Pretty bool
}

// ParseLevel resolves Level to a zerolog.Level, defaulting to Info on
// an empty or unrecognized value.
func (c Config) ParseLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// New builds a zerolog.Logger from cfg.
func New(cfg Config) (zerolog.Logger, error) {
	output, outputFile, err := selectOutput(cfg.Output)
	if err != nil {
		return zerolog.Logger{}, err
	}

	var w io.Writer = output
	if shouldUsePretty(cfg, outputFile) {
		w = buildConsoleWriter(output)
	}

	logger := zerolog.New(w).
		Level(cfg.ParseLevel()).
		With().
		Timestamp().
		Logger()

	return logger, nil
}

func selectOutput(outputCfg string) (io.Writer, *os.File, error) {
	switch outputCfg {
	case "", "stdout":
		return os.Stdout, os.Stdout, nil
	case "stderr":
		return os.Stderr, os.Stderr, nil
	default:
		path := filepath.Clean(outputCfg)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
}

func shouldUsePretty(cfg Config, outputFile *os.File) bool {
	if cfg.Pretty {
		return true
	}
	switch cfg.Format {
	case "pretty":
		return true
	case "json":
		return false
	default:
		return outputFile != nil && isatty.IsTerminal(outputFile.Fd())
	}
}

func buildConsoleWriter(output io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:             output,
		TimeFormat:      "15:04:05",
		FormatLevel:     formatLevel,
		FormatMessage:   formatMessage,
		FormatFieldName: formatFieldName,
		FormatFieldValue: func(i interface{}) string {
			return fmt.Sprintf("%s", i)
		},
	}
}

func formatLevel(i interface{}) string {
	levelStr, ok := i.(string)
	if !ok {
		return ""
	}
	levelColors := map[string]string{
		"debug": "\033[36mDBG\033[0m",
		"info":  "\033[32mINF\033[0m",
		"warn":  "\033[33mWRN\033[0m",
		"error": "\033[31mERR\033[0m",
		"fatal": "\033[35mFTL\033[0m",
		"panic": "\033[35mPNC\033[0m",
	}
	if colored, ok := levelColors[levelStr]; ok {
		return colored
	}
	return levelStr
}

func formatMessage(i interface{}) string {
	if i == nil {
		return ""
	}
	return fmt.Sprintf("-> %s", i)
}

func formatFieldName(i interface{}) string {
	return fmt.Sprintf("\033[2m%s=\033[0m", i)
}

// WithLoadID stamps logger with a load_id field and returns both the
// scoped logger and a context carrying it. An empty loadID generates a
// fresh one, matching the teacher's request-id-or-generate idiom.
func WithLoadID(ctx context.Context, logger zerolog.Logger, loadID string) (context.Context, zerolog.Logger) {
	if loadID == "" {
		loadID = uuid.New().String()
	}
	scoped := logger.With().Str("load_id", loadID).Logger()
	ctx = context.WithValue(ctx, LoadIDKey, loadID)
	return scoped.WithContext(ctx), scoped
}

// LoadID retrieves the load_id stamped by WithLoadID, or "" if absent.
func LoadID(ctx context.Context) string {
	if id, ok := ctx.Value(LoadIDKey).(string); ok {
		return id
	}
	return ""
}
