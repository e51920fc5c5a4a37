package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("botToken", "test-token")
	t.Setenv("PORT", "3001")
	t.Setenv("enviroment", "test")
	resetForTesting()

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if config.BotToken != "test-token" {
		t.Errorf("BotToken = %v, want %v", config.BotToken, "test-token")
	}
	if config.Port != "3001" {
		t.Errorf("Port = %v, want %v", config.Port, "3001")
	}
	if config.Environment != "test" {
		t.Errorf("Environment = %v, want %v", config.Environment, "test")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	if got := getEnv("TEST_VAR", "default"); got != "test-value" {
		t.Errorf("getEnv() = %v, want %v", got, "test-value")
	}
	if got := getEnv("NON_EXISTENT_VAR", "default"); got != "default" {
		t.Errorf("getEnv() = %v, want %v", got, "default")
	}
}

func TestIsProd(t *testing.T) {
	t.Setenv("enviroment", "prod")
	resetForTesting()
	config, _ := Load()
	if !config.IsProd() {
		t.Error("IsProd() should return true when environment is 'prod'")
	}

	t.Setenv("enviroment", "dev")
	resetForTesting()
	config, _ = Load()
	if config.IsProd() {
		t.Error("IsProd() should return false when environment is not 'prod'")
	}
}

func TestGet(t *testing.T) {
	resetForTesting()

	config := Get()
	if config == nil {
		t.Fatal("Get() returned nil")
	}
	if config2 := Get(); config != config2 {
		t.Error("Get() should return the same config on subsequent calls")
	}
}

func TestDefaultValues(t *testing.T) {
	for _, key := range []string{"mongodbUrl", "dbName", "MQTT_Host", "MQTT_Port", "PORT", "enviroment",
		"STORE_BACKEND", "AUDIT_WINDOW", "AUDIT_ATTEMPTS", "AUDIT_DELAY", "DAILY_ACTION_CAP",
		"SECURITY_RESET_POLICY", "PUNISHMENT_TIMEOUT", "WARN_SWEEP_INTERVAL"} {
		t.Setenv(key, "")
	}
	resetForTesting()

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"MongoDBURL", config.MongoDBURL, "mongodb://localhost:27017"},
		{"DBName", config.DBName, "PancyGuard"},
		{"StoreBackend", config.StoreBackend, StoreMongo},
		{"MQTTHost", config.MQTTHost, "localhost"},
		{"MQTTPort", config.MQTTPort, "1883"},
		{"Port", config.Port, "3000"},
		{"Environment", config.Environment, "dev"},
		{"AuditWindow", config.Security.AuditWindow, 30 * time.Second},
		{"AuditAttempts", config.Security.AuditAttempts, 3},
		{"AuditDelay", config.Security.AuditDelay, 900 * time.Millisecond},
		{"DailyActionCap", config.Security.DailyActionCap, 4},
		{"ResetPolicy", config.Security.ResetPolicy, "always"},
		{"TimeoutDuration", config.Security.TimeoutDuration, time.Hour},
		{"SweepInterval", config.Security.SweepInterval, 10 * time.Minute},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s default = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestInvalidValues(t *testing.T) {
	tests := []struct{ key, value string }{
		{"AUDIT_ATTEMPTS", "zero"},
		{"DAILY_ACTION_CAP", "-1"},
		{"AUDIT_DELAY", "soon"},
		{"STORE_BACKEND", "postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			resetForTesting()
			if _, err := Load(); err == nil {
				t.Errorf("Load() accepted %s=%q", tt.key, tt.value)
			}
		})
	}
	resetForTesting()
}
