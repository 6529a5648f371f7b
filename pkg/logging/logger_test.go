package logging

import "testing"

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		l := New(level)
		if l == nil || l.Logger == nil {
			t.Fatalf("New(%q) returned nil logger", level)
		}
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default returned nil")
	}
}

func TestWithComponentNilSafety(t *testing.T) {
	var l *Logger
	if l.WithComponent("lifecycle") == nil {
		t.Fatal("WithComponent on nil logger returned nil")
	}
}
