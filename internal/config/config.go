package config

import (
	"bytes"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Cfg struct {
	MQTTConfig       MQTTConfig     `mapstructure:"mqtt_config"`
	EdgeNodeConfig   EdgeNodeConfig `mapstructure:"edge_node"`
	HostConfig       HostConfig     `mapstructure:"host_app"`
	LoggerConfig     Logger         `mapstructure:"logger"`
	EnablePrometheus bool           `mapstructure:"enable_prometheus"`
}

type MQTTConfig struct {
	URL          string `mapstructure:"url"`
	ClientID     string `mapstructure:"client_id"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	KeepAlive    uint16 `mapstructure:"keep_alive"`
	CleanSession bool   `mapstructure:"clean_session"`
	TLS          *TLS   `mapstructure:"tls"`
}

type TLS struct {
	TrustStore           string `mapstructure:"trust_store"`
	KeyStore             string `mapstructure:"key_store"`
	PrivateKey           string `mapstructure:"private_key"`
	PrivateKeyPassword   string `mapstructure:"private_key_password"`
	EnableServerCertAuth bool   `mapstructure:"enable_server_cert_auth"`
}

type EdgeNodeConfig struct {
	GroupID  string   `mapstructure:"group_id"`
	NodeID   string   `mapstructure:"node_id"`
	DataQoS  uint8    `mapstructure:"data_qos"`
	DeathQoS uint8    `mapstructure:"death_qos"`
	Devices  []Device `mapstructure:"devices"`
}

type Device struct {
	DeviceID        string   `mapstructure:"device_id"`
	StoreAndForward bool     `mapstructure:"store_and_forward"`
	TTL             uint32   `mapstructure:"time_to_live"`
	Sensors         []Sensor `mapstructure:"sensors"`
}

type Sensor struct {
	SensorID  string  `mapstructure:"sensor_id"`
	Mean      float64 `mapstructure:"mean"`
	Std       float64 `mapstructure:"standard_deviation"`
	DelayMin  uint32  `mapstructure:"delay_min"`
	DelayMax  uint32  `mapstructure:"delay_max"`
	Randomize bool    `mapstructure:"randomize"`
}

type HostConfig struct {
	HostID  string `mapstructure:"host_id"`
	GroupID string `mapstructure:"group_id"`
	QoS     uint8  `mapstructure:"qos"`
}

type Logger struct {
	Level            string `mapstructure:"level"`
	Format           string `mapstructure:"format"`
	DisableTimestamp bool   `mapstructure:"disable_timestamp"`
}

// GetConfigs loads config.json from the usual locations, falling back to
// the embedded defaults when no file is found.
func GetConfigs() Cfg {
	var configs Cfg
	logger := logrus.New()
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath("./configs/")
	v.AddConfigPath("/configs/")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Warnln("Config file not found, using default configs")
			return setDefault(v, logger)
		}
		logger.Errorln("Config file was found but another error was produced")
		panic(err)
	}

	if err := v.Unmarshal(&configs); err != nil {
		logger.Errorln("Unable to unmarshal configs")
		panic(err)
	}
	logger.Infoln("Config file parsed successfully")
	return configs
}

func setDefault(v *viper.Viper, log *logrus.Logger) Cfg {
	var configs Cfg

	defaultConfig := []byte(`
	{
		"mqtt_config": {
			"url": "tcp://broker.emqx.io:1883",
			"client_id": "",
			"user": "",
			"password": "",
			"keep_alive": 60,
			"clean_session": true
		},

		"edge_node": {
			"group_id": "Energy",
			"node_id": "Gateway01",
			"data_qos": 0,
			"death_qos": 1,
			"devices": [
				{
					"device_id": "boilerRoom",
					"store_and_forward": true,
					"time_to_live": 600,
					"sensors": [
						{
							"sensor_id": "Temperature",
							"mean": 30.6,
							"standard_deviation": 3.1,
							"delay_min": 3,
							"delay_max": 6,
							"randomize": true
						},
						{
							"sensor_id": "Humidity",
							"mean": 40.7,
							"standard_deviation": 2.3,
							"delay_min": 4,
							"delay_max": 10,
							"randomize": false
						}
					]
				}
			]
		},

		"host_app": {
			"host_id": "SCADA01",
			"group_id": "Energy",
			"qos": 1
		},

		"logger": {
			"level": "INFO",
			"format": "TEXT",
			"disable_timestamp": false
		},

		"enable_prometheus": true
	}
	`)

	if err := v.MergeConfig(bytes.NewReader(defaultConfig)); err != nil {
		log.Errorln("Error using default configs, exiting")
		panic(err)
	}

	if err := v.Unmarshal(&configs); err != nil {
		log.Errorln("Unable to unmarshal default configs")
		panic(err)
	}
	log.Infoln("Default configs parsed successfully")
	return configs
}
