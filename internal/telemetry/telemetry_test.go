package telemetry

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/francescopittino/AirQualityLoRaProject/internal/wire"
)

var received = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

func decode(t *testing.T, msg string) wire.Report {
	t.Helper()
	r, err := wire.Decode(msg)
	if err != nil {
		t.Fatalf("wire.Decode: %v", err)
	}
	return r
}

func TestFromReport_Healthy(t *testing.T) {
	r := decode(t, "SNGeo/Name:Dogna/Lat:46.448526/Lon:13.315586/Alt:400"+
		"#DHT11/Temperature_Celsius:21.500000/Temperature_Fahrenheit:70.700000/Temperature_Feels_like:21.141455/Humidity:55.000000"+
		"#MQ135/MQ:512.000000"+
		"#PMS5003/PM1.0:12/PM2.5:20/PM10:25/N0.3:900/N10:0")

	got, err := FromReport(r, received)
	if err != nil {
		t.Fatalf("FromReport() error = %v", err)
	}
	if got.StationID != "Dogna" || !got.Timestamp.Equal(received) {
		t.Errorf("station/timestamp = %q/%v", got.StationID, got.Timestamp)
	}
	if got.Altitude == nil || *got.Altitude != 400 {
		t.Errorf("Altitude = %v, want 400", got.Altitude)
	}
	if got.Temperature == nil || *got.Temperature != 21.5 {
		t.Errorf("Temperature = %v, want 21.5", got.Temperature)
	}
	if got.FeelsLike == nil || *got.FeelsLike != 21.141455 {
		t.Errorf("FeelsLike = %v", got.FeelsLike)
	}
	if got.Gas == nil || *got.Gas != 512 {
		t.Errorf("Gas = %v, want 512", got.Gas)
	}
	if got.PM2_5 == nil || *got.PM2_5 != 20 {
		t.Errorf("PM2_5 = %v, want 20", got.PM2_5)
	}
	if got.ParticleCounts["N0.3"] != 900 || len(got.ParticleCounts) != 2 {
		t.Errorf("ParticleCounts = %v", got.ParticleCounts)
	}
	if len(got.Faults) != 0 {
		t.Errorf("Faults = %v, want none", got.Faults)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestFromReport_Faults(t *testing.T) {
	r := decode(t, "SNGeo/Name:Dogna/Lat:46.448526/Lon:13.315586/Alt:400"+
		"#DHT11/ERROR:Could_not_reach_sensor"+
		"#MQ135/ERROR:Could_not_get_a_valid_measurement"+
		"#PMS5003/ERROR:ERROR_MSG_CKSUM")

	got, err := FromReport(r, received)
	if err != nil {
		t.Fatalf("FromReport() error = %v", err)
	}
	if got.Faults["PMS5003"] != "ERROR_MSG_CKSUM" || len(got.Faults) != 3 {
		t.Errorf("Faults = %v", got.Faults)
	}
	if got.Temperature != nil || got.PM10 != nil {
		t.Error("readings set for faulted sensors")
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want a fault-only record to be valid", err)
	}
}

func TestFromReport_Errors(t *testing.T) {
	tests := []struct {
		name    string
		msg     string
		wantErr string
	}{
		{name: "non numeric", msg: "SNGeo/Name:A/Lat:1/Lon:2/Alt:3#MQ135/MQ:abc", wantErr: "invalid MQ"},
		{name: "missing field", msg: "SNGeo/Name:A/Lat:1/Lon:2/Alt:3#PMS5003/PM1.0:1/PM2.5:2", wantErr: "missing PM10"},
		{name: "bad count", msg: "SNGeo/Name:A/Lat:1/Lon:2/Alt:3#PMS5003/PM1.0:1/PM2.5:2/PM10:3/N0.5:x", wantErr: "invalid N0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromReport(decode(t, tt.msg), received)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("FromReport() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestFromReport_UnknownTagKept(t *testing.T) {
	got, err := FromReport(decode(t, "SNGeo/Name:A/Lat:x/Lon:2/Alt:3#BME280/Pressure:1013"), received)
	if err != nil {
		t.Fatalf("FromReport() error = %v", err)
	}
	if len(got.Unknown) != 1 || got.Unknown[0] != "BME280" {
		t.Errorf("Unknown = %v", got.Unknown)
	}
	if got.Latitude != nil {
		t.Errorf("Latitude = %v, want nil for non-numeric coordinate", *got.Latitude)
	}
	if err := got.Validate(); err == nil {
		t.Error("Validate() error = nil for a record without readings")
	}
}

func TestValidate(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		name    string
		tel     Telemetry
		wantErr bool
	}{
		{name: "ok", tel: Telemetry{StationID: "s", Timestamp: received, Gas: f(1)}},
		{name: "no station", tel: Telemetry{Timestamp: received, Gas: f(1)}, wantErr: true},
		{name: "no timestamp", tel: Telemetry{StationID: "s", Gas: f(1)}, wantErr: true},
		{name: "humidity high", tel: Telemetry{StationID: "s", Timestamp: received, Humidity: f(101)}, wantErr: true},
		{name: "negative pm", tel: Telemetry{StationID: "s", Timestamp: received, PM10: f(-1)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.tel.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJSONShape(t *testing.T) {
	v := 21.5
	raw, err := json.Marshal(Telemetry{StationID: "Dogna", Timestamp: received, Temperature: &v})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(raw)
	for _, want := range []string{`"station_id":"Dogna"`, `"temperature_c":21.5`} {
		if !strings.Contains(s, want) {
			t.Errorf("json %s missing %s", s, want)
		}
	}
	if strings.Contains(s, "pm10_ugm3") || strings.Contains(s, "faults") {
		t.Errorf("json %s carries empty optional fields", s)
	}
}
