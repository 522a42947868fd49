package logger

import (
	"testing"

	"github.com/starnight-hq/starnight-client/internal/config"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestHelpersBeforeAndAfterInit(t *testing.T) {
	S = nil
	InfoObj("ignored before init", "k", 1)
	if err := Close(); err != nil {
		t.Fatalf("Close before init: %v", err)
	}

	log, err := Init(&config.Config{AppName: "starnight-client", Env: "test", LogLevel: "error"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if S == nil {
		t.Fatalf("Init must install the package logger")
	}
	var _ Logger = log
	var _ Logger = NopLogger{}
	log.DebugObj("below level", "k", map[string]any{"a": 1})
	WarnObj("below level", "k", "v")
}
