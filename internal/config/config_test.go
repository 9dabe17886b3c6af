package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DeviceID != "raspberry-pi-001" {
		t.Errorf("DeviceID: got %q, want raspberry-pi-001", cfg.DeviceID)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port: got %d, want 3000", cfg.Port)
	}
	if cfg.BulbHold != 2*time.Second {
		t.Errorf("BulbHold: got %v, want 2s", cfg.BulbHold)
	}
	if cfg.PollInterval != 10*time.Millisecond {
		t.Errorf("PollInterval: got %v, want 10ms", cfg.PollInterval)
	}
	if !cfg.EnableGPIO {
		t.Error("expected EnableGPIO=true by default")
	}

	wantSwitch := []int{17, 27, 22, 5, 6}
	wantBulb := []int{23, 24, 25, 16, 26}
	if len(cfg.SwitchPins) != len(wantSwitch) {
		t.Fatalf("SwitchPins: got %v, want %v", cfg.SwitchPins, wantSwitch)
	}
	for i := range wantSwitch {
		if cfg.SwitchPins[i] != wantSwitch[i] {
			t.Errorf("SwitchPins[%d]: got %d, want %d", i, cfg.SwitchPins[i], wantSwitch[i])
		}
		if cfg.BulbPins[i] != wantBulb[i] {
			t.Errorf("BulbPins[%d]: got %d, want %d", i, cfg.BulbPins[i], wantBulb[i])
		}
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("API_URL", "https://api.example.com")
	t.Setenv("DEVICE_ID", "panel-7")
	t.Setenv("TIME_ON_BULB", "500ms")
	t.Setenv("ENABLE_GPIO", "false")
	t.Setenv("SWITCH_PINS", "2,3")
	t.Setenv("BULB_PINS", "4,5")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIURL != "https://api.example.com" {
		t.Errorf("APIURL: got %q", cfg.APIURL)
	}
	if cfg.DeviceID != "panel-7" {
		t.Errorf("DeviceID: got %q", cfg.DeviceID)
	}
	if cfg.BulbHold != 500*time.Millisecond {
		t.Errorf("BulbHold: got %v, want 500ms", cfg.BulbHold)
	}
	if cfg.EnableGPIO {
		t.Error("expected EnableGPIO=false")
	}
	if len(cfg.SwitchPins) != 2 || cfg.SwitchPins[0] != 2 || cfg.SwitchPins[1] != 3 {
		t.Errorf("SwitchPins: got %v, want [2 3]", cfg.SwitchPins)
	}
	if cfg.MQTTBroker != "tcp://broker:1883" {
		t.Errorf("MQTTBroker: got %q", cfg.MQTTBroker)
	}
}

func TestLoadRejectsMismatchedPins(t *testing.T) {
	t.Setenv("SWITCH_PINS", "17,27,22")
	t.Setenv("BULB_PINS", "23,24")

	if _, err := Load(); err == nil {
		t.Error("expected error for mismatched pin counts")
	}
}

func TestLoadRejectsEmptyPins(t *testing.T) {
	cfg := Config{SwitchPins: nil, BulbPins: nil, PollInterval: time.Millisecond}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty switch pins")
	}
}

func TestIsProd(t *testing.T) {
	if (Config{Environment: "development"}).IsProd() {
		t.Error("development should not be prod")
	}
	if !(Config{Environment: "production"}).IsProd() {
		t.Error("production should be prod")
	}
}
