package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"YES", false, true},
		{" on ", false, true},
		{"1", false, true},
		{"false", true, false},
		{"Off", true, false},
		{"0", true, false},
		{"maybe", true, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		t.Setenv("RECIPEBOT_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("RECIPEBOT_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 10 * time.Second},
		{"3s", 3 * time.Second},
		{"1m30s", 90 * time.Second},
		{"ten", 10 * time.Second},
		{"-5s", 10 * time.Second},
		{"0", 10 * time.Second},
	}
	for _, tt := range tests {
		t.Setenv("RECIPEBOT_TEST_DURATION", tt.value)
		if got := ParseDurationEnv("RECIPEBOT_TEST_DURATION", 10*time.Second); got != tt.want {
			t.Errorf("ParseDurationEnv(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestGetenvDefault(t *testing.T) {
	t.Setenv("RECIPEBOT_TEST_STR", "  ")
	if got := GetenvDefault("RECIPEBOT_TEST_STR", "fallback"); got != "fallback" {
		t.Errorf("blank value: got %q", got)
	}
	t.Setenv("RECIPEBOT_TEST_STR", " value ")
	if got := GetenvDefault("RECIPEBOT_TEST_STR", "fallback"); got != "value" {
		t.Errorf("got %q, want value", got)
	}
}
