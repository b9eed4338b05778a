package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	flag "github.com/spf13/pflag"

	"mtk3339/internal/config"
	"mtk3339/internal/led"
	"mtk3339/internal/nmea"
	"mtk3339/internal/pmtk"
	"mtk3339/internal/receiver"
	"mtk3339/internal/transport"
)

type closablePort interface {
	receiver.Port
	Close() error
}

// fix is the JSON payload published per meaningful state change.
type fix struct {
	Time       string   `json:"time,omitempty"`
	Latitude   *float64 `json:"lat,omitempty"`
	Longitude  *float64 `json:"lon,omitempty"`
	AltitudeM  *float64 `json:"alt_m,omitempty"`
	SpeedKnots *float64 `json:"speed_knots,omitempty"`
	CourseDeg  *float64 `json:"course_deg,omitempty"`
	Quality    string   `json:"quality"`
	SatsUsed   *int     `json:"sats_used,omitempty"`
	SatsInView *int     `json:"sats_in_view,omitempty"`
	HDOP       *float64 `json:"hdop,omitempty"`

	WaypointDistanceM  *float64 `json:"waypoint_distance_m,omitempty"`
	WaypointBearingDeg *float64 `json:"waypoint_bearing_deg,omitempty"`
}

func main() {
	var configPath string
	var verbose bool
	flag.StringVar(&configPath, "config", "./mtk3339.yaml", "Path to YAML config")
	flag.BoolVar(&verbose, "verbose", false, "Log every state change")
	flag.Parse()

	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal("config load failed", "err", err)
	}

	port, err := openPort(cfg.Receiver)
	if err != nil {
		log.Fatal("transport open failed", "err", err)
	}
	defer port.Close()

	var diag nmea.Counters
	dev, err := receiver.New(port, receiver.Config{Diagnostics: &diag})
	if err != nil {
		log.Fatal("receiver init failed", "err", err)
	}

	var fixLED *led.LED
	if cfg.LED.Enable {
		fixLED, err = led.Open(cfg.LED.Pin)
		if err != nil {
			log.Fatal("led open failed", "pin", cfg.LED.Pin, "err", err)
		}
		defer fixLED.Close()
	}

	var publish func(fix)
	if cfg.MQTT.Enable {
		client, err := connectMQTT(cfg.MQTT)
		if err != nil {
			log.Fatal("mqtt connect failed", "broker", cfg.MQTT.Broker, "err", err)
		}
		defer client.Disconnect(250)
		publish = func(f fix) {
			payload, err := json.Marshal(f)
			if err != nil {
				log.Error("fix marshal failed", "err", err)
				return
			}
			token := client.Publish(cfg.MQTT.Topic, 0, true, payload)
			token.Wait()
			if token.Error() != nil {
				log.Error("fix publish failed", "err", token.Error())
			}
		}
		log.Info("mqtt connected", "broker", cfg.MQTT.Broker, "topic", cfg.MQTT.Topic)
	}

	configure(dev, cfg.Receiver)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("mtk3339 starting", "transport", cfg.Receiver.Transport, "poll", cfg.Receiver.Poll)

	ticker := time.NewTicker(cfg.Receiver.Poll)
	defer ticker.Stop()

	hadFix := false
	for {
		select {
		case <-ctx.Done():
			log.Info("mtk3339 stopping",
				"bad_checksums", diag.BadChecksums,
				"overflows", diag.Overflows,
				"unknown", diag.Unknown,
				"field_errors", diag.FieldErrors)
			return
		case <-ticker.C:
		}

		changed, err := dev.Update()
		if err != nil {
			log.Error("update cycle failed", "err", err)
			continue
		}
		if !changed {
			continue
		}

		hasFix := dev.HasFix()
		if hasFix != hadFix {
			if hasFix {
				log.Info("fix acquired", "quality", dev.FixQuality())
			} else {
				log.Warn("fix lost")
			}
			hadFix = hasFix
		}
		if fixLED != nil {
			if err := fixLED.Set(hasFix); err != nil {
				log.Error("led set failed", "err", err)
			}
		}

		snap := dev.Snapshot()
		log.Debug("state changed", "last", dev.LastSentence())

		var wpDist, wpBearing *float64
		if cfg.Waypoint.Enable {
			if dist, ok := dev.DistanceTo(cfg.Waypoint.Lat, cfg.Waypoint.Lon); ok {
				bearing, _ := dev.BearingTo(cfg.Waypoint.Lat, cfg.Waypoint.Lon)
				wpDist, wpBearing = &dist, &bearing
				log.Debug("waypoint", "distance_m", dist, "bearing_deg", bearing)
			}
		}

		if publish != nil {
			f := fix{
				Latitude:   snap.LatDeg,
				Longitude:  snap.LonDeg,
				AltitudeM:  snap.AltitudeM,
				SpeedKnots: snap.SpeedKnots,
				CourseDeg:  snap.CourseDeg,
				Quality:    dev.FixQuality().String(),
				SatsUsed:   snap.SatsUsed,
				SatsInView: snap.SatsInView,
				HDOP:       snap.HDOP,

				WaypointDistanceM:  wpDist,
				WaypointBearingDeg: wpBearing,
			}
			if snap.TimeUTC != nil {
				f.Time = snap.TimeUTC.Format(time.RFC3339Nano)
			}
			publish(f)
		}
	}
}

func openPort(cfg config.ReceiverConfig) (closablePort, error) {
	if cfg.Transport == "i2c" {
		return transport.OpenI2C(transport.I2CConfig{Bus: cfg.I2CBus, Addr: cfg.I2CAddr})
	}
	return transport.OpenSerial(transport.SerialConfig{Device: cfg.Device, Baud: cfg.Baud})
}

// configure pushes the startup configuration to the module. Both commands
// are acknowledged asynchronously; the handles resolve during the poll loop
// and failures are only worth a warning here, since the module keeps
// working with its previous settings.
func configure(dev *receiver.Device, cfg config.ReceiverConfig) {
	if cfg.UpdateRate != 0 {
		if _, err := dev.SetUpdateRate(cfg.UpdateRate); err != nil {
			log.Warn("set update rate failed", "err", err)
		}
	}
	if cfg.Sentences.Any() {
		mask := pmtk.OutputMask{
			GLL: cfg.Sentences.GLL,
			RMC: cfg.Sentences.RMC,
			VTG: cfg.Sentences.VTG,
			GGA: cfg.Sentences.GGA,
			GSA: cfg.Sentences.GSA,
			GSV: cfg.Sentences.GSV,
		}
		if _, err := dev.SetOutput(mask); err != nil {
			log.Warn("set sentence output failed", "err", err)
		}
	}
}

func connectMQTT(cfg config.MQTTConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if token.Error() != nil {
		return nil, token.Error()
	}
	return client, nil
}
