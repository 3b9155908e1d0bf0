package config

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	MQTT     MQTTConfig    `mapstructure:"mqtt"`
	Decoder  DecoderConfig `mapstructure:"decoder"`

	WatchdogConfig WatchdogConfig `mapstructure:"watchdog"`
	Port           uint           `mapstructure:"port"`
	HttpLog        bool           `mapstructure:"http_log"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
	// AvailabilityRefreshMillis re-publishes the retained bridge state so a
	// restarted broker does not keep serving a stale LWT. 0 disables it.
	AvailabilityRefreshMillis uint32 `mapstructure:"availability_refresh_millis"`
}

type DecoderConfig struct {
	// Timezone the device's frame timestamps are expressed in, as an IANA
	// name. The frames themselves carry no zone information.
	Timezone string `mapstructure:"timezone"`
}

type WatchdogConfig struct {
	CheckIntervalMillis uint32 `mapstructure:"check_interval_millis"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

func (c DecoderConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
