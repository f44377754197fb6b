package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	// No env vars set in tests.
	cfg := Load()

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected sqlite driver by default, got %q", cfg.Database.Driver)
	}
	if cfg.Database.SQLitePath != "taglens.db" {
		t.Errorf("expected default sqlite path, got %q", cfg.Database.SQLitePath)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected default 25 open conns, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default info log level, got %q", cfg.LogLevel)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TAGLENS_DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/taglens")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "7")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver override lost: %q", cfg.Database.Driver)
	}
	if cfg.Database.URL != "postgres://localhost/taglens" {
		t.Errorf("URL override lost: %q", cfg.Database.URL)
	}
	if cfg.Database.MaxOpenConns != 7 {
		t.Errorf("conns override lost: %d", cfg.Database.MaxOpenConns)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level override lost: %q", cfg.LogLevel)
	}
}

func TestEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "not-a-number")
	if got := envInt("DATABASE_MAX_OPEN_CONNS", 25); got != 25 {
		t.Errorf("expected fallback 25, got %d", got)
	}

	t.Setenv("DATABASE_MAX_OPEN_CONNS", "-3")
	if got := envInt("DATABASE_MAX_OPEN_CONNS", 25); got != 25 {
		t.Errorf("expected fallback for negative value, got %d", got)
	}
}
