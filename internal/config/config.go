package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/francescopittino/AirQualityLoRaProject/internal/schedule"
)

// Config holds the settings every binary shares.
type Config struct {
	AppEnv   string
	LogLevel slog.Level
}

// MQTT is the broker connection used by the uplink on both ends.
type MQTT struct {
	Broker      string
	Port        int
	ClientID    string
	UplinkTopic string
}

type NodeConfig struct {
	Config

	// Coordinates are kept as written; they go on the wire verbatim.
	StationName string
	StationLat  string
	StationLon  string
	StationAlt  string

	CycleUnit         schedule.Unit
	SensorReadTimeout time.Duration

	SensorDriver   string
	HTProbe        string
	DHTIIODir      string
	I2CBus         string
	BME280Address  uint16
	ADS1115Address uint16
	MQADCChannel   int
	PMSPort        string
	PMSEmitCounts  bool

	RadioDriver     string
	RadioMaxPayload int
	MQTT            MQTT

	// HTTPAddr is empty when the status server is disabled.
	HTTPAddr string
}

type ReceiverConfig struct {
	Config

	MQTT            MQTT
	TelemetryPrefix string
	HTTPAddr        string
}

const (
	DriverSim  = "sim"
	DriverHost = "host"

	ProbeDHT11  = "dht11"
	ProbeBME280 = "bme280"

	RadioMQTT = "mqtt"
	RadioLog  = "log"
)

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func loadBase() (Config, error) {
	appEnv := getenv("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	return Config{AppEnv: appEnv, LogLevel: level}, nil
}

func loadMQTT(defaultClientID string) (MQTT, error) {
	mqttPortStr := getenv("MQTT_PORT", "1883")
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return MQTT{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return MQTT{}, fmt.Errorf("MQTT_PORT must be between 1 and 65535, got %d", mqttPort)
	}

	return MQTT{
		Broker:      getenv("MQTT_BROKER", "localhost"),
		Port:        mqttPort,
		ClientID:    getenv("MQTT_CLIENT_ID", defaultClientID),
		UplinkTopic: getenv("MQTT_UPLINK_TOPIC", "lora/uplink"),
	}, nil
}

func LoadNodeFromEnv() (NodeConfig, error) {
	base, err := loadBase()
	if err != nil {
		return NodeConfig{}, err
	}

	stationName := getenv("STATION_NAME", "Dogna")

	coords := make([]string, 3)
	values := make([]float64, 3)
	for i, v := range []struct{ key, def string }{
		{"STATION_LAT", "46.448526"},
		{"STATION_LON", "13.315586"},
		{"STATION_ALT", "400"},
	} {
		s := getenv(v.key, v.def)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return NodeConfig{}, fmt.Errorf("invalid %s %q: %w", v.key, s, err)
		}
		coords[i], values[i] = s, f
	}
	if values[0] < -90 || values[0] > 90 {
		return NodeConfig{}, fmt.Errorf("STATION_LAT must be between -90 and 90, got %v", values[0])
	}
	if values[1] < -180 || values[1] > 180 {
		return NodeConfig{}, fmt.Errorf("STATION_LON must be between -180 and 180, got %v", values[1])
	}

	cycleUnitStr := getenv("CYCLE_UNIT", "minute")
	cycleUnit, err := schedule.ParseUnit(cycleUnitStr)
	if err != nil {
		return NodeConfig{}, fmt.Errorf("invalid CYCLE_UNIT %q: %w", cycleUnitStr, err)
	}

	readTimeoutStr := getenv("SENSOR_READ_TIMEOUT", "5s")
	readTimeout, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		return NodeConfig{}, fmt.Errorf("invalid SENSOR_READ_TIMEOUT %q: %w", readTimeoutStr, err)
	}
	if readTimeout <= 0 {
		return NodeConfig{}, fmt.Errorf("SENSOR_READ_TIMEOUT must be positive, got %v", readTimeout)
	}

	sensorDriver := strings.ToLower(getenv("SENSOR_DRIVER", DriverSim))
	switch sensorDriver {
	case DriverSim, DriverHost:
	default:
		return NodeConfig{}, fmt.Errorf("invalid SENSOR_DRIVER %q (allowed: sim, host)", sensorDriver)
	}

	htProbe := strings.ToLower(getenv("HT_PROBE", ProbeDHT11))
	switch htProbe {
	case ProbeDHT11, ProbeBME280:
	default:
		return NodeConfig{}, fmt.Errorf("invalid HT_PROBE %q (allowed: dht11, bme280)", htProbe)
	}

	bme280AddressStr := getenv("BME280_ADDRESS", "0x76")
	bme280Address, err := strconv.ParseUint(bme280AddressStr, 0, 16)
	if err != nil {
		return NodeConfig{}, fmt.Errorf("invalid BME280_ADDRESS %q: %w", bme280AddressStr, err)
	}

	adsAddressStr := getenv("ADS1115_ADDRESS", "0x48")
	adsAddress, err := strconv.ParseUint(adsAddressStr, 0, 16)
	if err != nil {
		return NodeConfig{}, fmt.Errorf("invalid ADS1115_ADDRESS %q: %w", adsAddressStr, err)
	}

	channelStr := getenv("MQ_ADC_CHANNEL", "0")
	channel, err := strconv.Atoi(channelStr)
	if err != nil {
		return NodeConfig{}, fmt.Errorf("invalid MQ_ADC_CHANNEL %q: %w", channelStr, err)
	}
	if channel < 0 || channel > 3 {
		return NodeConfig{}, fmt.Errorf("MQ_ADC_CHANNEL must be between 0 and 3, got %d", channel)
	}

	emitCountsStr := getenv("PMS_EMIT_COUNTS", "false")
	emitCounts, err := strconv.ParseBool(emitCountsStr)
	if err != nil {
		return NodeConfig{}, fmt.Errorf("invalid PMS_EMIT_COUNTS %q: %w", emitCountsStr, err)
	}

	radioDriver := strings.ToLower(getenv("RADIO_DRIVER", RadioMQTT))
	switch radioDriver {
	case RadioMQTT, RadioLog:
	default:
		return NodeConfig{}, fmt.Errorf("invalid RADIO_DRIVER %q (allowed: mqtt, log)", radioDriver)
	}

	maxPayloadStr := getenv("RADIO_MAX_PAYLOAD", "255")
	maxPayload, err := strconv.Atoi(maxPayloadStr)
	if err != nil {
		return NodeConfig{}, fmt.Errorf("invalid RADIO_MAX_PAYLOAD %q: %w", maxPayloadStr, err)
	}
	if maxPayload <= 0 {
		return NodeConfig{}, fmt.Errorf("RADIO_MAX_PAYLOAD must be positive, got %d", maxPayload)
	}

	mqtt, err := loadMQTT("aq-node-" + stationName)
	if err != nil {
		return NodeConfig{}, err
	}

	return NodeConfig{
		Config:            base,
		StationName:       stationName,
		StationLat:        coords[0],
		StationLon:        coords[1],
		StationAlt:        coords[2],
		CycleUnit:         cycleUnit,
		SensorReadTimeout: readTimeout,
		SensorDriver:      sensorDriver,
		HTProbe:           htProbe,
		DHTIIODir:         getenv("DHT_IIO_DIR", "/sys/bus/iio/devices/iio:device0"),
		I2CBus:            strings.TrimSpace(os.Getenv("I2C_BUS")),
		BME280Address:     uint16(bme280Address),
		ADS1115Address:    uint16(adsAddress),
		MQADCChannel:      channel,
		PMSPort:           getenv("PMS_PORT", "/dev/ttyS0"),
		PMSEmitCounts:     emitCounts,
		RadioDriver:       radioDriver,
		RadioMaxPayload:   maxPayload,
		MQTT:              mqtt,
		HTTPAddr:          strings.TrimSpace(os.Getenv("HTTP_ADDR")),
	}, nil
}

func LoadReceiverFromEnv() (ReceiverConfig, error) {
	base, err := loadBase()
	if err != nil {
		return ReceiverConfig{}, err
	}

	mqtt, err := loadMQTT("aq-receiver")
	if err != nil {
		return ReceiverConfig{}, err
	}

	prefix := strings.Trim(getenv("MQTT_TELEMETRY_PREFIX", "stations"), "/")
	if prefix == "" {
		return ReceiverConfig{}, fmt.Errorf("MQTT_TELEMETRY_PREFIX must not be empty")
	}

	return ReceiverConfig{
		Config:          base,
		MQTT:            mqtt,
		TelemetryPrefix: prefix,
		HTTPAddr:        strings.TrimSpace(os.Getenv("HTTP_ADDR")),
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
