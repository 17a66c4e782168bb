// Package cli wires the demo binaries: a simulated edge node and a host
// application consuming its traffic.
package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matishsiao/goInfo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/iotedgekit/go-sparkplugb/edge"
	"github.com/iotedgekit/go-sparkplugb/internal/config"
	"github.com/iotedgekit/go-sparkplugb/internal/log"
	"github.com/iotedgekit/go-sparkplugb/internal/simulator"
	"github.com/iotedgekit/go-sparkplugb/payload"
	"github.com/iotedgekit/go-sparkplugb/sparkplugb"
	"github.com/iotedgekit/go-sparkplugb/topic"
	"github.com/iotedgekit/go-sparkplugb/transport"
)

// Run starts the demo edge node: NBIRTH with platform properties and Node
// Control metrics, one DBIRTH per configured device, then sensor-driven
// DDATA until interrupted.
func Run() {
	cfg := config.GetConfigs()
	logger := log.NewLogger(
		cfg.LoggerConfig.Level,
		cfg.LoggerConfig.Format,
		cfg.LoggerConfig.DisableTimestamp,
	)

	ctx := context.Background()

	nodeCfg := edge.NewConfig(cfg.MQTTConfig.URL, cfg.EdgeNodeConfig.GroupID, cfg.EdgeNodeConfig.NodeID)
	nodeCfg.ClientID = cfg.MQTTConfig.ClientID
	nodeCfg.Username = cfg.MQTTConfig.User
	nodeCfg.Password = cfg.MQTTConfig.Password
	nodeCfg.KeepAlive = cfg.MQTTConfig.KeepAlive
	nodeCfg.CleanSession = cfg.MQTTConfig.CleanSession
	nodeCfg.DataQoS = cfg.EdgeNodeConfig.DataQoS
	nodeCfg.DeathQoS = cfg.EdgeNodeConfig.DeathQoS
	if cfg.MQTTConfig.TLS != nil {
		nodeCfg.TLS = &transport.TLSOptions{
			TrustStore:           cfg.MQTTConfig.TLS.TrustStore,
			KeyStore:             cfg.MQTTConfig.TLS.KeyStore,
			PrivateKey:           cfg.MQTTConfig.TLS.PrivateKey,
			PrivateKeyPassword:   cfg.MQTTConfig.TLS.PrivateKeyPassword,
			EnableServerCertAuth: cfg.MQTTConfig.TLS.EnableServerCertAuth,
		}
	}
	for _, d := range cfg.EdgeNodeConfig.Devices {
		if d.StoreAndForward {
			nodeCfg.StoreAndForward = true
			if ttl := time.Duration(d.TTL) * time.Second; ttl > nodeCfg.BufferTTL {
				nodeCfg.BufferTTL = ttl
			}
		}
	}

	node, err := edge.NewNode(nodeCfg, nil, logger)
	if err != nil {
		logger.Errorf("Failed to instantiate edge node: %v", err)
		os.Exit(1)
	}

	// Rebirth when SCADA writes Node Control/Rebirth. The callback runs on
	// a transport goroutine, so the blocking Rebirth moves to its own one.
	node.SetCommandCallback(func(t topic.Topic, p *sparkplugb.Payload) {
		for _, m := range p.GetMetrics() {
			if m.GetName() == payload.NodeControlRebirth && m.GetBooleanValue() {
				logger.Infoln("Rebirth requested by host")
				go func() {
					if err := node.Rebirth(ctx); err != nil {
						logger.Errorf("Rebirth failed: %v", err)
					}
				}()
				return
			}
		}
	})

	if err := node.Connect(ctx); err != nil {
		logger.Errorf("Failed to connect: %v", err)
		os.Exit(1)
	}

	if err := node.PublishBirth(ctx, nodeBirth()); err != nil {
		logger.Errorf("Failed to publish NBIRTH: %v", err)
		os.Exit(1)
	}

	for _, device := range cfg.EdgeNodeConfig.Devices {
		aliases := make(map[string]uint64, len(device.Sensors))
		birth := payload.NewBuilder()
		for i, sensor := range device.Sensors {
			alias := uint64(i + 1)
			aliases[sensor.SensorID] = alias
			birth.AddMetricWithAlias(sensor.SensorID, alias, sensor.Mean)
		}
		if err := node.PublishDeviceBirth(ctx, device.DeviceID, birth); err != nil {
			logger.WithField("device", device.DeviceID).Errorf("Failed to publish DBIRTH: %v", err)
			continue
		}

		for _, sensorCfg := range device.Sensors {
			sensor := simulator.NewSensor(
				sensorCfg.SensorID,
				sensorCfg.Mean,
				sensorCfg.Std,
				int(sensorCfg.DelayMin),
				int(sensorCfg.DelayMax),
				sensorCfg.Randomize,
			)
			sensor.Run(logger)
			go publishSensorData(ctx, node, logger, device.DeviceID, aliases[sensor.SensorID], sensor)
		}
	}

	if cfg.EnablePrometheus {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(":8080", nil); err != nil {
				logger.Errorf("Prometheus endpoint failed: %v", err)
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	shutdownCtx, cancel := context.WithTimeout(context.Background(), transport.DefaultDisconnectTimeout)
	defer cancel()
	if err := node.Close(shutdownCtx); err != nil {
		logger.Errorf("Shutdown error: %v", err)
	}
	logger.Infoln("Shutdown complete")
}

func publishSensorData(ctx context.Context, node *edge.Node, logger *logrus.Logger, deviceID string, alias uint64, sensor *simulator.Sensor) {
	for value := range sensor.Data {
		b := payload.NewBuilder().AddMetricByAlias(alias, value)
		if err := node.PublishDeviceData(ctx, deviceID, b); err != nil {
			logger.WithFields(logrus.Fields{
				"device": deviceID,
				"sensor": sensor.SensorID,
			}).Warnf("Couldn't publish DDATA: %v", err)
			continue
		}
		logger.WithFields(logrus.Fields{
			"device": deviceID,
			"sensor": sensor.SensorID,
			"value":  value,
		}).Debugln("DDATA published")
	}
}

// nodeBirth assembles the NBIRTH payload: Node Control metrics plus the
// host platform properties.
func nodeBirth() *payload.Builder {
	b := payload.NewBuilder().AddNodeControlMetrics(0)
	if gi, err := goInfo.GetInfo(); err == nil {
		b.AddMetric("Properties/OS", gi.OS).
			AddMetric("Properties/Kernel", gi.Kernel).
			AddMetric("Properties/Hostname", gi.Hostname)
	}
	return b
}
