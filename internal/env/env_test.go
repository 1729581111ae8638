package env

import "testing"

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("GANTRY_TEST_STRING", "value")
	if got := GetEnvOrDefault("GANTRY_TEST_STRING", "fallback"); got != "value" {
		t.Errorf("expected set value, got %q", got)
	}
	if got := GetEnvOrDefault("GANTRY_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}

	t.Setenv("GANTRY_TEST_EMPTY", "")
	if got := GetEnvOrDefault("GANTRY_TEST_EMPTY", "fallback"); got != "fallback" {
		t.Errorf("empty values fall back, got %q", got)
	}
}

func TestGetEnvBoolOrDefault(t *testing.T) {
	t.Setenv("GANTRY_TEST_BOOL", "true")
	if !GetEnvBoolOrDefault("GANTRY_TEST_BOOL", false) {
		t.Error("expected true")
	}

	t.Setenv("GANTRY_TEST_BOOL", "0")
	if GetEnvBoolOrDefault("GANTRY_TEST_BOOL", true) {
		t.Error("expected false")
	}

	t.Setenv("GANTRY_TEST_BOOL", "not-a-bool")
	if !GetEnvBoolOrDefault("GANTRY_TEST_BOOL", true) {
		t.Error("unparseable values fall back")
	}
}

func TestGetEnvIntOrDefault(t *testing.T) {
	t.Setenv("GANTRY_TEST_INT", "42")
	if got := GetEnvIntOrDefault("GANTRY_TEST_INT", 7); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}

	t.Setenv("GANTRY_TEST_INT", "nope")
	if got := GetEnvIntOrDefault("GANTRY_TEST_INT", 7); got != 7 {
		t.Errorf("unparseable values fall back, got %d", got)
	}

	if got := GetEnvIntOrDefault("GANTRY_TEST_INT_UNSET", 7); got != 7 {
		t.Errorf("expected fallback, got %d", got)
	}
}
