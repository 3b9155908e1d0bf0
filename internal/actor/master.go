package actor

import (
	"errors"
	"fmt"
	"log"
	"time"

	"sunsynk2mqtt/internal/config"
	"sunsynk2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const (
	MASTER_ACTOR_ID = "master"
)

type MQTTActorProvider func(*eventstream.EventStream) *MQTTActor

type DecoderActorProvider func(*eventstream.EventStream) *DecoderActor

// MasterActor supervises the pipeline: it spawns the decoder and MQTT children,
// routes frame requests to the decoder and fans out health checks.
type MasterActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck   healthCheckResult
	eventStream          *eventstream.EventStream
	decoderActor         *actor.PID
	mqttActor            *actor.PID
	decoderActorProvider DecoderActorProvider
	mqttActorProvider    MQTTActorProvider
	logger               *zap.Logger
}

type healthCheckResult struct {
	decoderActorHealthy bool
	mqttActorHealthy    bool
	checksReceived      int
	respondTo           *actor.PID
}

func NewMasterActor(config config.Config, decoderActorProvider DecoderActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterActor {
	act := &MasterActor{
		config:               config,
		behavior:             actor.NewBehavior(),
		stash:                &Stash{},
		logger:               actorutil.ActorLogger("master", logger),
		eventStream:          &eventstream.EventStream{},
		decoderActorProvider: decoderActorProvider,
		mqttActorProvider:    mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		// start decoder child
		decoderActorPID, err := state.startDecoderActor(ctx)
		if err != nil {
			panic(err)
		}
		state.decoderActor = decoderActorPID

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start HA Discovery
		if state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// decoder actor request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.decoderActor, ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return ActorHealthResponse{
				Id:      DECODER_ACTOR_ID,
				Healthy: false,
				Error:   fmt.Sprintf("%s", err),
			}
		})
		// MQTT actor request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return ActorHealthResponse{
				Id:      MQTT_ACTOR_ID,
				Healthy: false,
				Error:   fmt.Sprintf("%s", err),
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case DecodeFrameRequest:
		// redirect frame to decoder, preserving the caller for the reply
		state.logger.Debug("master@default DecodeFrameRequest", zap.Int("bytes", len(msg.Data)))
		ctx.RequestWithCustomSender(state.decoderActor, msg, ctx.Sender())
	case GetLastFrameRequest:
		state.logger.Debug("master@default GetLastFrameRequest")
		ctx.RequestWithCustomSender(state.decoderActor, msg, ctx.Sender())
	case *actor.Terminated:
		// if some actor fails on boot, terminate
		if msg.Who.GetId() == fmt.Sprintf("%s/%s", MASTER_ACTOR_ID, DECODER_ACTOR_ID) {
			state.logger.Error("master@default decoder error")
			panic(errors.New("decoder terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			if msg.Id == DECODER_ACTOR_ID {
				state.currentHealthCheck.decoderActorHealthy = true
			} else if msg.Id == MQTT_ACTOR_ID {
				state.currentHealthCheck.mqttActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {

			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) startDecoderActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	decoderProps := actor.PropsFromProducer(func() actor.Actor {
		return state.decoderActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	decoderActorPID, err := ctx.SpawnNamed(decoderProps, DECODER_ACTOR_ID)
	if err != nil {
		return nil, err
	}

	return decoderActorPID, nil
}

func (state *MasterActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, MQTT_ACTOR_ID)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *MasterActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.decoderActor, state.mqttActor, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	haDiscPID, err := ctx.SpawnNamed(haDiscProps, HADISCOVERY_ACTOR_ID)
	if err != nil {
		return nil, err
	}

	return haDiscPID, nil
}

func (state *healthCheckResult) reset() {
	state.decoderActorHealthy = false
	state.mqttActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 2
}

func (state *healthCheckResult) allHealthy() bool {
	return state.decoderActorHealthy && state.mqttActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := ActorHealthResponse{
		Id:      MASTER_ACTOR_ID,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
