package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	os.Setenv("botToken", "test-token")
	os.Setenv("PORT", "3001")
	os.Setenv("enviroment", "test")
	os.Setenv("freeCredits", "40")
	defer func() {
		os.Unsetenv("botToken")
		os.Unsetenv("PORT")
		os.Unsetenv("enviroment")
		os.Unsetenv("freeCredits")
	}()

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

	if config.FreeCredits != 40 {
		t.Errorf("FreeCredits = %v, want %v", config.FreeCredits, 40)
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_VAR", "test-value")
	defer os.Unsetenv("TEST_VAR")

	if got := getEnv("TEST_VAR", "default"); got != "test-value" {
		t.Errorf("getEnv() = %v, want %v", got, "test-value")
	}

	if got := getEnv("NON_EXISTENT_VAR", "default"); got != "default" {
		t.Errorf("getEnv() = %v, want %v", got, "default")
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		value string
		want  int64
	}{
		{"", 7},
		{"12", 12},
		{"1_000", 1000},
		{"nope", 7},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			os.Setenv("TEST_INT", tt.value)
			defer os.Unsetenv("TEST_INT")

			if got := getEnvInt("TEST_INT", 7); got != tt.want {
				t.Errorf("getEnvInt(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestOwnerIDs(t *testing.T) {
	os.Setenv("ownerIds", " 111, ,222 ")
	defer os.Unsetenv("ownerIds")

	resetForTesting()
	config, _ := Load()

	if len(config.OwnerIDs) != 2 {
		t.Fatalf("OwnerIDs = %v, want 2 entries", config.OwnerIDs)
	}
	if !config.IsOwner("111") || !config.IsOwner("222") {
		t.Errorf("IsOwner() should accept listed IDs, got %v", config.OwnerIDs)
	}
	if config.IsOwner("333") {
		t.Error("IsOwner() should reject unlisted IDs")
	}
}

func TestIsProd(t *testing.T) {
	resetForTesting()
	os.Setenv("enviroment", "prod")
	config, _ := Load()

	if !config.IsProd() {
		t.Error("IsProd() should return true when environment is 'prod'")
	}

	resetForTesting()
	os.Setenv("enviroment", "dev")
	config, _ = Load()

	if config.IsProd() {
		t.Error("IsProd() should return false when environment is not 'prod'")
	}

	os.Unsetenv("enviroment")
}

func TestGet(t *testing.T) {
	resetForTesting()

	config := Get()
	if config == nil {
		t.Fatal("Get() returned nil")
	}

	config2 := Get()
	if config != config2 {
		t.Error("Get() should return the same config on subsequent calls")
	}
}

func TestDefaultValues(t *testing.T) {
	for _, key := range []string{"botToken", "devGuildId", "ownerIds", "mongodbUrl", "dbName",
		"MQTT_Host", "MQTT_Port", "PORT", "enviroment", "linkport", "freeCredits", "bankMaxBalance"} {
		os.Unsetenv(key)
	}

	resetForTesting()
	config, _ := Load()

	if config.MongoDBURL != "mongodb://localhost:27017" {
		t.Errorf("MongoDBURL default = %v, want %v", config.MongoDBURL, "mongodb://localhost:27017")
	}

	if config.DBName != "UselessBot" {
		t.Errorf("DBName default = %v, want %v", config.DBName, "UselessBot")
	}

	if config.MQTTPort != "1883" {
		t.Errorf("MQTTPort default = %v, want %v", config.MQTTPort, "1883")
	}

	if config.Port != "3000" {
		t.Errorf("Port default = %v, want %v", config.Port, "3000")
	}

	if config.LinkPort != 2333 {
		t.Errorf("LinkPort default = %v, want %v", config.LinkPort, 2333)
	}

	if config.FreeCredits != 15 {
		t.Errorf("FreeCredits default = %v, want %v", config.FreeCredits, 15)
	}

	if config.BankMaxBalance != 1_000_000_000_000 {
		t.Errorf("BankMaxBalance default = %v", config.BankMaxBalance)
	}

	if len(config.OwnerIDs) != 0 {
		t.Errorf("OwnerIDs default = %v, want empty", config.OwnerIDs)
	}
}
