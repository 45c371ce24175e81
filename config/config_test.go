package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ORDER_PREFIX", "ORDER_SEQUENCE_WIDTH", "COUNTER_STORE", "COUNTER_TIMEOUT", "TIMEZONE"} {
		t.Setenv(key, "")
	}
	s := Load()
	if s.Port != "5000" {
		t.Errorf("Port = %q", s.Port)
	}
	if s.OrderPrefix != "ONAM" || s.Public.OrderPrefix != "ONAM" {
		t.Errorf("OrderPrefix = %q / %q", s.OrderPrefix, s.Public.OrderPrefix)
	}
	if s.OrderSequenceWidth != 4 {
		t.Errorf("OrderSequenceWidth = %d", s.OrderSequenceWidth)
	}
	if s.CounterStore != "postgres" {
		t.Errorf("CounterStore = %q", s.CounterStore)
	}
	if s.CounterTimeout != 3*time.Second {
		t.Errorf("CounterTimeout = %v", s.CounterTimeout)
	}
	if s.Timezone != "Asia/Kolkata" {
		t.Errorf("Timezone = %q", s.Timezone)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ORDER_PREFIX", "FEST")
	t.Setenv("ORDER_SEQUENCE_WIDTH", "6")
	t.Setenv("COUNTER_STORE", "Redis")
	t.Setenv("EMAIL_TIMEOUT", "5s")
	t.Setenv("CSRF_ENABLED", "false")
	t.Setenv("APP_ENV", "production")

	s := Load()
	if s.OrderPrefix != "FEST" || s.OrderSequenceWidth != 6 {
		t.Errorf("prefix/width = %q/%d", s.OrderPrefix, s.OrderSequenceWidth)
	}
	if s.CounterStore != "redis" {
		t.Errorf("CounterStore = %q", s.CounterStore)
	}
	if s.EmailTimeout != 5*time.Second {
		t.Errorf("EmailTimeout = %v", s.EmailTimeout)
	}
	if s.CSRFEnabled {
		t.Error("CSRF should be disabled")
	}
	if !s.IsProduction() {
		t.Error("expected production")
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ORDER_SEQUENCE_WIDTH", "wide")
	t.Setenv("COUNTER_TIMEOUT", "soon")
	s := Load()
	if s.OrderSequenceWidth != 4 {
		t.Errorf("OrderSequenceWidth = %d", s.OrderSequenceWidth)
	}
	if s.CounterTimeout != 3*time.Second {
		t.Errorf("CounterTimeout = %v", s.CounterTimeout)
	}
}

func TestDSN(t *testing.T) {
	s := Settings{DBHost: "db", DBPort: 5433, DBUser: "u", DBPassword: "p", DBName: "onam", DBSSLMode: "disable"}
	want := "host=db port=5433 user=u password=p dbname=onam sslmode=disable"
	if got := s.DSN(); got != want {
		t.Fatalf("DSN = %q", got)
	}
}
