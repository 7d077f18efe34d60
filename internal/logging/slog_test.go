package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestWithHelpers(t *testing.T) {
	logger := slog.Default()
	if WithOperation(logger, "op") == nil {
		t.Error("WithOperation returned nil")
	}
	if WithTool(logger, "tool") == nil {
		t.Error("WithTool returned nil")
	}
	if WithBusiness(logger, "biz") == nil {
		t.Error("WithBusiness returned nil")
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		key  string
		want string
	}{
		{"operation", Operation("create_calendar_event"), KeyOperation, "create_calendar_event"},
		{"business", Business("biz-1"), KeyBusiness, "biz-1"},
		{"tool", Tool("check_calendar_availability"), KeyTool, "check_calendar_availability"},
		{"status", Status(StatusSuccess), KeyStatus, "success"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.key {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.key)
			}
			if tt.attr.Value.String() != tt.want {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.want)
			}
		})
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("test error"))
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}

	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestAnonymizePhone(t *testing.T) {
	if got := AnonymizePhone(""); got != "" {
		t.Errorf("AnonymizePhone(\"\") = %q, want empty", got)
	}

	a := AnonymizePhone("5215551234567")
	b := AnonymizePhone("5215551234567")
	c := AnonymizePhone("5215557654321")

	if a != b {
		t.Error("AnonymizePhone is not deterministic")
	}
	if a == c {
		t.Error("different phones produced the same hash")
	}
	if !strings.HasPrefix(a, "phone:") || len(a) != len("phone:")+16 {
		t.Errorf("unexpected hash format %q", a)
	}
	if strings.Contains(a, "5215551234567") {
		t.Error("hash leaks the phone number")
	}
}

func TestPhoneAndSenderHash(t *testing.T) {
	if PhoneHash("123").Key != KeyPhone {
		t.Error("PhoneHash key mismatch")
	}
	if SenderHash("123").Key != KeySender {
		t.Error("SenderHash key mismatch")
	}
	if PhoneHash("123").Value.String() != SenderHash("123").Value.String() {
		t.Error("phone and sender hashes should agree for the same identity")
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken(""); got != "<empty>" {
		t.Errorf("SanitizeToken(\"\") = %q", got)
	}
	if got := SanitizeToken("ya29.secret"); got != "[token:11 chars]" {
		t.Errorf("SanitizeToken = %q", got)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "json")
	logger.Info("hidden")
	logger.Warn("shown", Business("biz-1"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, `"business_id":"biz-1"`) {
		t.Errorf("expected JSON output with business_id, got %q", out)
	}

	buf.Reset()
	NewLogger(&buf, "debug", "text").Debug("dbg")
	if !strings.Contains(buf.String(), "msg=dbg") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
