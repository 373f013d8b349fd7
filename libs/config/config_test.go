package config

import "testing"

func TestIntFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "abc")
	if got := Int("DB_MAX_CONNS", 10); got != 10 {
		t.Fatalf("expected fallback 10, got %d", got)
	}
	t.Setenv("DB_MAX_CONNS", "-3")
	if got := Int("DB_MAX_CONNS", 10); got != 10 {
		t.Fatalf("expected fallback 10, got %d", got)
	}
	t.Setenv("DB_MAX_CONNS", "25")
	if got := Int("DB_MAX_CONNS", 10); got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("FEATURE", "on")
	if !Bool("FEATURE", false) {
		t.Fatalf("expected true")
	}
	t.Setenv("FEATURE", "0")
	if Bool("FEATURE", true) {
		t.Fatalf("expected false")
	}
	t.Setenv("FEATURE", "maybe")
	if !Bool("FEATURE", true) {
		t.Fatalf("expected fallback true")
	}
}

func TestList(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	got := List("CORS_ALLOWED_ORIGINS")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected list: %#v", got)
	}
}

func TestLocation(t *testing.T) {
	loc, err := Location("RESERVATION_TIMEZONE", "America/New_York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.String() != "America/New_York" {
		t.Fatalf("expected America/New_York, got %s", loc)
	}

	t.Setenv("RESERVATION_TIMEZONE", "Mars/Olympus")
	if _, err := Location("RESERVATION_TIMEZONE", "America/New_York"); err == nil {
		t.Fatalf("expected error for unknown zone")
	}
}

func TestPort(t *testing.T) {
	t.Setenv("PORT", "70000")
	if _, err := Port("PORT", "8080"); err == nil {
		t.Fatalf("expected error for out of range port")
	}
}
