package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Receiver ReceiverConfig `yaml:"receiver"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	LED      LEDConfig      `yaml:"led"`
	Waypoint WaypointConfig `yaml:"waypoint"`
}

type ReceiverConfig struct {
	// Transport selects how the module is attached: "serial" or "i2c".
	// When empty, defaults to "serial".
	Transport string `yaml:"transport"`

	// Device is the serial device path when Transport=="serial".
	Device string `yaml:"device"`
	Baud   uint   `yaml:"baud"`

	// I2CBus/I2CAddr apply when Transport=="i2c".
	I2CBus  string `yaml:"i2c_bus"`
	I2CAddr uint16 `yaml:"i2c_addr"`

	// Poll is the update-cycle interval of the monitor loop.
	Poll time.Duration `yaml:"poll"`

	// UpdateRate, when set, is sent to the module at startup (PMTK220).
	UpdateRate time.Duration `yaml:"update_rate"`

	// Sentences, when any is set, selects the module's sentence output
	// at startup (PMTK314). All false means: leave the module as-is.
	Sentences SentencesConfig `yaml:"sentences"`
}

type SentencesConfig struct {
	GLL bool `yaml:"gll"`
	RMC bool `yaml:"rmc"`
	VTG bool `yaml:"vtg"`
	GGA bool `yaml:"gga"`
	GSA bool `yaml:"gsa"`
	GSV bool `yaml:"gsv"`
}

func (s SentencesConfig) Any() bool {
	return s.GLL || s.RMC || s.VTG || s.GGA || s.GSA || s.GSV
}

type MQTTConfig struct {
	Enable   bool   `yaml:"enable"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

type LEDConfig struct {
	Enable bool `yaml:"enable"`
	Pin    int  `yaml:"pin"`
}

// WaypointConfig, when enabled, makes the daemon report distance and
// bearing from each fix to a fixed point of interest.
type WaypointConfig struct {
	Enable bool    `yaml:"enable"`
	Lat    float64 `yaml:"lat"`
	Lon    float64 `yaml:"lon"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	switch cfg.Receiver.Transport {
	case "":
		cfg.Receiver.Transport = "serial"
	case "serial", "i2c":
	default:
		return Config{}, fmt.Errorf("receiver.transport must be 'serial' or 'i2c'")
	}

	if cfg.Receiver.Transport == "serial" {
		if cfg.Receiver.Device == "" {
			return Config{}, fmt.Errorf("receiver.device is required for the serial transport")
		}
		if cfg.Receiver.Baud == 0 {
			cfg.Receiver.Baud = 9600
		}
	} else {
		if cfg.Receiver.I2CBus == "" {
			return Config{}, fmt.Errorf("receiver.i2c_bus is required for the i2c transport")
		}
	}

	if cfg.Receiver.Poll <= 0 {
		cfg.Receiver.Poll = 100 * time.Millisecond
	}
	if cfg.Receiver.UpdateRate != 0 &&
		(cfg.Receiver.UpdateRate < 100*time.Millisecond || cfg.Receiver.UpdateRate > 10*time.Second) {
		return Config{}, fmt.Errorf("receiver.update_rate must be between 100ms and 10s")
	}

	if cfg.MQTT.Enable {
		if cfg.MQTT.Broker == "" {
			return Config{}, fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "mtk3339"
		}
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = "gps/fix"
		}
	}

	if cfg.LED.Enable && cfg.LED.Pin <= 0 {
		return Config{}, fmt.Errorf("led.pin is required when led.enable is true")
	}

	if cfg.Waypoint.Enable {
		if cfg.Waypoint.Lat < -90 || cfg.Waypoint.Lat > 90 {
			return Config{}, fmt.Errorf("waypoint.lat must be within [-90,90]")
		}
		if cfg.Waypoint.Lon < -180 || cfg.Waypoint.Lon > 180 {
			return Config{}, fmt.Errorf("waypoint.lon must be within [-180,180]")
		}
	}

	return cfg, nil
}
