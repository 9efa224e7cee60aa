package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/feedcache"
)

func TestZapLoggerWritesLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Debug("d", nil)
	l.Info("i", feedcache.Fields{"count": 2})
	l.Warn("w", feedcache.Fields{"err": errors.New("boom")})
	l.Error("e", feedcache.Fields{"b": 1, "a": 2})

	entries := logs.AllUntimed()
	if len(entries) != 4 {
		t.Fatalf("entries=%d want 4", len(entries))
	}
	wantLevels := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != wantLevels[i] {
			t.Errorf("entry %d level=%v want %v", i, e.Level, wantLevels[i])
		}
		if e.LoggerName != "feedcache" {
			t.Errorf("entry %d logger=%q", i, e.LoggerName)
		}
	}
	if got := entries[1].ContextMap()["count"]; got != int64(2) {
		t.Errorf("count=%v (%T)", got, got)
	}
	if got := entries[2].ContextMap()["err"]; got != "boom" {
		t.Errorf("err=%v", got)
	}
	if f := entries[3].Context; len(f) != 2 || f[0].Key != "a" || f[1].Key != "b" {
		t.Errorf("fields not in key order: %+v", f)
	}
}
