package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/francescopittino/AirQualityLoRaProject/internal/schedule"
)

var nodeVars = []string{
	"APP_ENV", "LOG_LEVEL",
	"STATION_NAME", "STATION_LAT", "STATION_LON", "STATION_ALT",
	"CYCLE_UNIT", "SENSOR_READ_TIMEOUT", "SENSOR_DRIVER", "HT_PROBE", "DHT_IIO_DIR",
	"I2C_BUS", "BME280_ADDRESS", "ADS1115_ADDRESS", "MQ_ADC_CHANNEL",
	"PMS_PORT", "PMS_EMIT_COUNTS", "RADIO_DRIVER", "RADIO_MAX_PAYLOAD",
	"MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID", "MQTT_UPLINK_TOPIC", "MQTT_TELEMETRY_PREFIX",
	"HTTP_ADDR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range nodeVars {
		t.Setenv(k, "")
	}
}

func TestLoadNodeFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadNodeFromEnv()
	if err != nil {
		t.Fatalf("LoadNodeFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.StationName != "Dogna" || got.StationLat != "46.448526" || got.StationLon != "13.315586" || got.StationAlt != "400" {
		t.Errorf("station = %q %q %q %q", got.StationName, got.StationLat, got.StationLon, got.StationAlt)
	}
	if got.CycleUnit != schedule.Minute {
		t.Errorf("CycleUnit = %v, want minute", got.CycleUnit)
	}
	if got.SensorReadTimeout != 5*time.Second {
		t.Errorf("SensorReadTimeout = %v, want 5s", got.SensorReadTimeout)
	}
	if got.SensorDriver != DriverSim || got.HTProbe != ProbeDHT11 || got.RadioDriver != RadioMQTT {
		t.Errorf("drivers = %q %q %q", got.SensorDriver, got.HTProbe, got.RadioDriver)
	}
	if got.BME280Address != 0x76 || got.ADS1115Address != 0x48 {
		t.Errorf("addresses = %#x %#x", got.BME280Address, got.ADS1115Address)
	}
	if got.PMSPort != "/dev/ttyS0" || got.PMSEmitCounts {
		t.Errorf("PMS = %q emitCounts=%v", got.PMSPort, got.PMSEmitCounts)
	}
	if got.RadioMaxPayload != 255 {
		t.Errorf("RadioMaxPayload = %d, want 255", got.RadioMaxPayload)
	}
	wantMQTT := MQTT{Broker: "localhost", Port: 1883, ClientID: "aq-node-Dogna", UplinkTopic: "lora/uplink"}
	if got.MQTT != wantMQTT {
		t.Errorf("MQTT = %+v, want %+v", got.MQTT, wantMQTT)
	}
	if got.HTTPAddr != "" {
		t.Errorf("HTTPAddr = %q, want disabled", got.HTTPAddr)
	}
}

func TestLoadNodeFromEnv_AppEnv_Valid(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
		want   string
	}{
		{name: "dev", appEnv: "dev", want: "dev"},
		{name: "prod", appEnv: "prod", want: "prod"},
		{name: "prod with whitespace", appEnv: "\nprod\t", want: "prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", tt.appEnv)

			got, err := LoadNodeFromEnv()
			if err != nil {
				t.Fatalf("LoadNodeFromEnv() error = %v, want nil", err)
			}
			if got.AppEnv != tt.want {
				t.Errorf("AppEnv = %q, want %q", got.AppEnv, tt.want)
			}
		})
	}
}

func TestLoadNodeFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "uppercase env", key: "APP_ENV", value: "DEV"},
		{name: "staging", key: "APP_ENV", value: "staging"},
		{name: "log level", key: "LOG_LEVEL", value: "verbose"},
		{name: "latitude text", key: "STATION_LAT", value: "north"},
		{name: "latitude range", key: "STATION_LAT", value: "91"},
		{name: "longitude range", key: "STATION_LON", value: "-181"},
		{name: "altitude", key: "STATION_ALT", value: "high"},
		{name: "cycle unit", key: "CYCLE_UNIT", value: "day"},
		{name: "timeout", key: "SENSOR_READ_TIMEOUT", value: "soon"},
		{name: "zero timeout", key: "SENSOR_READ_TIMEOUT", value: "0s"},
		{name: "sensor driver", key: "SENSOR_DRIVER", value: "gpio"},
		{name: "ht probe", key: "HT_PROBE", value: "dht22"},
		{name: "bme address", key: "BME280_ADDRESS", value: "0xZZ"},
		{name: "ads address", key: "ADS1115_ADDRESS", value: "-1"},
		{name: "adc channel", key: "MQ_ADC_CHANNEL", value: "4"},
		{name: "emit counts", key: "PMS_EMIT_COUNTS", value: "maybe"},
		{name: "radio driver", key: "RADIO_DRIVER", value: "ble"},
		{name: "max payload", key: "RADIO_MAX_PAYLOAD", value: "0"},
		{name: "mqtt port", key: "MQTT_PORT", value: "abc"},
		{name: "mqtt port range", key: "MQTT_PORT", value: "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := LoadNodeFromEnv(); err == nil {
				t.Fatalf("LoadNodeFromEnv() with %s=%q error = nil, want non-nil", tt.key, tt.value)
			}
		})
	}
}

func TestLoadNodeFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STATION_NAME", "Chiusaforte")
	t.Setenv("CYCLE_UNIT", "hour")
	t.Setenv("SENSOR_DRIVER", "HOST")
	t.Setenv("HT_PROBE", "bme280")
	t.Setenv("BME280_ADDRESS", "0x77")
	t.Setenv("MQ_ADC_CHANNEL", "2")
	t.Setenv("PMS_EMIT_COUNTS", "true")
	t.Setenv("RADIO_DRIVER", "log")
	t.Setenv("HTTP_ADDR", ":9100")

	got, err := LoadNodeFromEnv()
	if err != nil {
		t.Fatalf("LoadNodeFromEnv() error = %v, want nil", err)
	}
	if got.CycleUnit != schedule.Hour {
		t.Errorf("CycleUnit = %v, want hour", got.CycleUnit)
	}
	if got.SensorDriver != DriverHost || got.HTProbe != ProbeBME280 || got.RadioDriver != RadioLog {
		t.Errorf("drivers = %q %q %q", got.SensorDriver, got.HTProbe, got.RadioDriver)
	}
	if got.BME280Address != 0x77 || got.MQADCChannel != 2 || !got.PMSEmitCounts {
		t.Errorf("hardware = %#x ch%d counts=%v", got.BME280Address, got.MQADCChannel, got.PMSEmitCounts)
	}
	if got.MQTT.ClientID != "aq-node-Chiusaforte" {
		t.Errorf("ClientID = %q", got.MQTT.ClientID)
	}
	if got.HTTPAddr != ":9100" {
		t.Errorf("HTTPAddr = %q", got.HTTPAddr)
	}
}

func TestLoadReceiverFromEnv(t *testing.T) {
	clearEnv(t)

	got, err := LoadReceiverFromEnv()
	if err != nil {
		t.Fatalf("LoadReceiverFromEnv() error = %v, want nil", err)
	}
	if got.MQTT.ClientID != "aq-receiver" || got.MQTT.UplinkTopic != "lora/uplink" {
		t.Errorf("MQTT = %+v", got.MQTT)
	}
	if got.TelemetryPrefix != "stations" {
		t.Errorf("TelemetryPrefix = %q, want stations", got.TelemetryPrefix)
	}

	t.Setenv("MQTT_TELEMETRY_PREFIX", "/aq/stations/")
	got, err = LoadReceiverFromEnv()
	if err != nil {
		t.Fatalf("LoadReceiverFromEnv() error = %v, want nil", err)
	}
	if got.TelemetryPrefix != "aq/stations" {
		t.Errorf("TelemetryPrefix = %q, want aq/stations", got.TelemetryPrefix)
	}

	t.Setenv("MQTT_TELEMETRY_PREFIX", "/")
	if _, err := LoadReceiverFromEnv(); err == nil {
		t.Error("LoadReceiverFromEnv() error = nil for an empty prefix")
	}
}

func TestParseLogLevel_Valid(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if err != nil {
				t.Fatalf("parseLogLevel(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
