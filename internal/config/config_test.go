package config

import "testing"

func TestGetEnvOrDefaultFallsBackWhenUnset(t *testing.T) {
	t.Setenv("MS_TEST_UNSET_KEY", "")
	if got := getEnvOrDefault("MS_TEST_UNSET_KEY", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %s", got)
	}
}

func TestGetEnvFloatParsesValidValue(t *testing.T) {
	t.Setenv("MS_TEST_FLOAT_KEY", "3.5")
	if got := getEnvFloat("MS_TEST_FLOAT_KEY", 1.0); got != 3.5 {
		t.Errorf("expected 3.5, got %v", got)
	}
}

func TestGetEnvFloatFallsBackOnInvalidValue(t *testing.T) {
	t.Setenv("MS_TEST_FLOAT_KEY", "not-a-number")
	if got := getEnvFloat("MS_TEST_FLOAT_KEY", 1.0); got != 1.0 {
		t.Errorf("expected fallback 1.0, got %v", got)
	}
}

func TestGetEnvDurationParsesValidValue(t *testing.T) {
	t.Setenv("MS_TEST_DURATION_KEY", "5m")
	got := getEnvDuration("MS_TEST_DURATION_KEY", 0)
	if got.String() != "5m0s" {
		t.Errorf("expected 5m0s, got %s", got)
	}
}

func TestGetEnvIntParsesValidValue(t *testing.T) {
	t.Setenv("MS_TEST_INT_KEY", "21")
	if got := getEnvInt("MS_TEST_INT_KEY", 14); got != 21 {
		t.Errorf("expected 21, got %d", got)
	}
}

func TestGetEnvIntFallsBackOnInvalidValue(t *testing.T) {
	t.Setenv("MS_TEST_INT_KEY", "not-a-number")
	if got := getEnvInt("MS_TEST_INT_KEY", 14); got != 14 {
		t.Errorf("expected fallback 14, got %d", got)
	}
}

func TestLoadFromEnvAppliesDefaults(t *testing.T) {
	cfg := LoadFromEnv()
	if cfg.Scanner.MarketTimezone != "America/New_York" {
		t.Errorf("expected default timezone, got %s", cfg.Scanner.MarketTimezone)
	}
	if cfg.Scanner.HighVolumeRVOLMin != 2.0 {
		t.Errorf("expected default rvol threshold 2.0, got %v", cfg.Scanner.HighVolumeRVOLMin)
	}
	if cfg.Scanner.ATRPeriod != 14 {
		t.Errorf("expected default atr period 14, got %d", cfg.Scanner.ATRPeriod)
	}
	if cfg.Scanner.RefDataLookbackDays != 20 {
		t.Errorf("expected default refdata lookback 20, got %d", cfg.Scanner.RefDataLookbackDays)
	}
}
