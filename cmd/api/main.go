package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sunsynk2mqtt/internal/actor"
	"sunsynk2mqtt/internal/config"
	"sunsynk2mqtt/internal/server"
	"sunsynk2mqtt/internal/util/actorutil"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterActor(*cfg, decoderActorProvider(cfg, logger), mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	// periodic health watchdog
	schedCtx, cancelSched := context.WithCancel(context.Background())
	defer cancelSched()
	if err := startWatchdog(schedCtx, cfg, ctx, pid, logger); err != nil {
		logger.Warn("could not start watchdog", zap.Error(err))
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => SUNSYNK_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("SUNSYNK_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("sunsynk")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check decoder timezone
	if _, err := cfg.Decoder.Location(); err != nil {
		return nil, fmt.Errorf("invalid decoder timezone %q", cfg.Decoder.Timezone)
	}

	// check bounds
	if cfg.WatchdogConfig.CheckIntervalMillis != 0 && cfg.WatchdogConfig.CheckIntervalMillis < 5000 {
		return nil, errors.New("config param watchdog.check_interval_millis should be >= 5000ms")
	}

	return &cfg, nil
}

func decoderActorProvider(cfg *config.Config, logger *zap.Logger) actor.DecoderActorProvider {
	return func(es *eventstream.EventStream) *actor.DecoderActor {
		return actor.NewDecoderActor(cfg, es, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *actor.MQTTActor {
		return actor.NewMQTTActor(cfg, es, logger)
	}
}

// startWatchdog schedules a recurring health check against the master actor
// and logs when the pipeline degrades.
func startWatchdog(ctx context.Context, cfg *config.Config, rootContext *pactor.RootContext, masterActor *pactor.PID, logger *zap.Logger) error {
	if cfg.WatchdogConfig.CheckIntervalMillis == 0 {
		return nil
	}
	interval := time.Duration(cfg.WatchdogConfig.CheckIntervalMillis) * time.Millisecond

	sched := quartz.NewStdScheduler()
	sched.Start(ctx)

	healthJob := job.NewFunctionJob(func(context.Context) (bool, error) {
		res, err := rootContext.RequestFuture(masterActor, actor.ActorHealthRequest{}, 10*time.Second).Result()
		if err != nil {
			logger.Warn("watchdog health check failed", zap.Error(err))
			return false, err
		}
		resp, ok := res.(actor.ActorHealthResponse)
		if !ok || !resp.Healthy {
			logger.Warn("watchdog pipeline unhealthy", zap.Any("response", res))
			return false, nil
		}
		logger.Debug("watchdog pipeline healthy")
		return true, nil
	})

	return sched.ScheduleJob(quartz.NewJobDetail(healthJob, quartz.NewJobKey("health_watchdog")),
		quartz.NewSimpleTrigger(interval))
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "sunsynk")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("mqtt.availability_refresh_millis", 60000)
	viper.SetDefault("decoder.timezone", "UTC")
	viper.SetDefault("watchdog.check_interval_millis", 30000)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
