package util

import (
	"sunsynk2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "sunsynk",
			HADiscoveryTopic: "homeassistant",
		},
		Decoder: config.DecoderConfig{
			Timezone: "UTC",
		},
		WatchdogConfig: config.WatchdogConfig{
			CheckIntervalMillis: 30000,
		},
		Port: 8080,
	}
}
