package meshes

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestLogrusLoggerLevels(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := NewLogrusLogger(base)

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	want := []logrus.Level{logrus.DebugLevel, logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel}
	entries := hook.AllEntries()
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Errorf("entry %d level = %v, want %v", i, e.Level, want[i])
		}
	}
}

func TestLogrusLoggerFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	l := NewLogrusLogger(base)

	l.Info("mesh loaded", "name", "teapot", "vertices", 3, 7, "seven", "dangling")

	e := hook.LastEntry()
	if e == nil {
		t.Fatal("no entry logged")
	}
	if e.Message != "mesh loaded" {
		t.Errorf("Message = %q, want %q", e.Message, "mesh loaded")
	}

	want := logrus.Fields{
		"name":     "teapot",
		"vertices": 3,
		"7":        "seven",
		"!BADKEY":  "dangling",
	}
	for k, v := range want {
		if e.Data[k] != v {
			t.Errorf("field %q = %v, want %v", k, e.Data[k], v)
		}
	}
	if len(e.Data) != len(want) {
		t.Errorf("fields = %v, want %v", e.Data, want)
	}
}

func TestLogrusLoggerRespectsLevel(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.WarnLevel)
	l := NewLogrusLogger(base)

	l.Debug("hidden", "k", "v")
	l.Info("hidden")
	l.Warn("shown")

	if n := len(hook.AllEntries()); n != 1 {
		t.Errorf("got %d entries, want 1", n)
	}
}
