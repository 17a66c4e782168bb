package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/iotedgekit/go-sparkplugb/host"
	"github.com/iotedgekit/go-sparkplugb/internal/config"
	"github.com/iotedgekit/go-sparkplugb/internal/log"
	"github.com/iotedgekit/go-sparkplugb/sparkplugb"
	"github.com/iotedgekit/go-sparkplugb/topic"
	"github.com/iotedgekit/go-sparkplugb/transport"
)

// RunHost starts the demo host application: it subscribes to the configured
// group, announces itself with a STATE birth, and logs the traffic it
// validates, resolving metric aliases from the captured birth certificates.
func RunHost() {
	cfg := config.GetConfigs()
	logger := log.NewLogger(
		cfg.LoggerConfig.Level,
		cfg.LoggerConfig.Format,
		cfg.LoggerConfig.DisableTimestamp,
	)

	ctx := context.Background()

	hostCfg := host.NewConfig(cfg.MQTTConfig.URL, cfg.HostConfig.HostID)
	hostCfg.ClientID = cfg.MQTTConfig.ClientID
	hostCfg.Username = cfg.MQTTConfig.User
	hostCfg.Password = cfg.MQTTConfig.Password
	hostCfg.KeepAlive = cfg.MQTTConfig.KeepAlive
	hostCfg.CleanSession = cfg.MQTTConfig.CleanSession
	if cfg.HostConfig.QoS != 0 {
		hostCfg.QoS = cfg.HostConfig.QoS
	}

	var app *host.Application
	hostCfg.MessageCallback = func(t topic.Topic, p *sparkplugb.Payload) {
		fields := logrus.Fields{
			"topic": t.String(),
			"type":  string(t.MessageType),
		}
		if p.HasSeq() {
			fields["seq"] = p.GetSeq()
		}
		for _, m := range p.GetMetrics() {
			name := m.GetName()
			if name == "" && m.HasAlias() {
				if resolved, ok := app.Observer().GetMetricName(t.GroupID, t.EdgeNodeID, t.DeviceID, m.GetAlias()); ok {
					name = resolved
				}
			}
			if name != "" {
				fields[name] = m.Value
			}
		}
		logger.WithFields(fields).Infoln("Sparkplug message")
	}
	hostCfg.StateCallback = func(hostID string, online bool, timestamp uint64, _ []byte) {
		logger.WithFields(logrus.Fields{
			"host":      hostID,
			"online":    online,
			"timestamp": timestamp,
		}).Infoln("Host STATE")
	}

	var err error
	app, err = host.NewApplication(hostCfg, nil, logger)
	if err != nil {
		logger.Errorf("Failed to instantiate host application: %v", err)
		os.Exit(1)
	}

	if err := app.Connect(ctx); err != nil {
		logger.Errorf("Failed to connect: %v", err)
		os.Exit(1)
	}
	if err := app.SubscribeAll(ctx, cfg.HostConfig.GroupID); err != nil {
		logger.Errorf("Failed to subscribe: %v", err)
		os.Exit(1)
	}
	if err := app.PublishStateBirth(ctx, uint64(time.Now().UnixMilli())); err != nil {
		logger.Errorf("Failed to publish STATE birth: %v", err)
	}

	if cfg.EnablePrometheus {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(":8081", nil); err != nil {
				logger.Errorf("Prometheus endpoint failed: %v", err)
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	shutdownCtx, cancel := context.WithTimeout(context.Background(), transport.DefaultDisconnectTimeout)
	defer cancel()
	if err := app.PublishStateDeath(shutdownCtx, uint64(time.Now().UnixMilli())); err != nil {
		logger.Errorf("Failed to publish STATE death: %v", err)
	}
	if err := app.Disconnect(shutdownCtx); err != nil {
		logger.Errorf("Disconnect error: %v", err)
	}
	logger.Infoln("Shutdown complete")
}
