package actor

import (
	"errors"
	"fmt"
	"time"

	"sunsynk2mqtt/internal/config"
	"sunsynk2mqtt/internal/events"
	"sunsynk2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const (
	HADISCOVERY_ACTOR_ID = "hadiscovery"
)

// HADiscoveryActor publishes the Home Assistant discovery config once the
// pipeline is healthy and the first frame has revealed the inverter serial.
type HADiscoveryActor struct {
	config              *config.Config
	behavior            actor.Behavior
	stash               *Stash
	decoderActor        *actor.PID
	mqttActor           *actor.PID
	eventStream         *eventstream.EventStream
	eventStreamSub      *eventstream.Subscription
	decoderActorHealthy bool
	mqttActorHealthy    bool
	healthyRecv         int

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, decoderActor *actor.PID, mqttActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:       config,
		decoderActor: decoderActor,
		mqttActor:    mqttActor,
		eventStream:  eventStream,
		behavior:     actor.NewBehavior(),
		stash:        &Stash{},
		logger:       actorutil.ActorLogger("hadiscovery", logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// check decoder and MQTT actor healthy
		state.healthyRecv = 0
		state.decoderActorHealthy = false
		state.mqttActorHealthy = false
		// decoder actor request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.decoderActor, ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return ActorHealthResponse{
				Id:      DECODER_ACTOR_ID,
				Healthy: false,
				Error:   fmt.Sprintf("%s", err),
			}
		})
		// MQTT actor request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return ActorHealthResponse{
				Id:      MQTT_ACTOR_ID,
				Healthy: false,
				Error:   fmt.Sprintf("%s", err),
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
		state.unsubscribe()
	default:
		state.logger.Debug("hadiscovery@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			if msg.Id == DECODER_ACTOR_ID {
				state.decoderActorHealthy = true
			} else if msg.Id == MQTT_ACTOR_ID {
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {

			if state.decoderActorHealthy && state.mqttActorHealthy {
				// wait for the first decoded frame to learn the inverter serial
				state.eventStreamSub = state.eventStream.Subscribe(func(value any) {
					if ev, ok := value.(events.DeviceOnlineEvent); ok {
						ctx.Send(ctx.Self(), ev)
					}
				})
				state.behavior.Become(state.WaitingDeviceReceive)
				state.stash.UnstashAll(ctx)
			} else {
				panic(errors.New("MQTT actor or decoder actor are not healthy"))
			}
		}
	case *actor.Restarting:
		state.unsubscribe()
	default:
		state.logger.Debug("hadiscovery@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingDeviceReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case events.DeviceOnlineEvent:
		state.logger.Debug("hadiscovery@device DeviceOnlineEvent", zap.String("serial", msg.Serial))

		var sensors []events.GenericSensor

		bridgeDevice := events.BridgeDevice(state.config.MQTT.BaseTopic)
		bridgeSensors := events.BridgeSensors(bridgeDevice)
		sensors = append(sensors, bridgeSensors...)

		inverterDevice := events.InverterDevice(msg.Serial)
		inverterDevice.ViaDevice = bridgeDevice.Id
		fieldSensors := events.FieldSensors(inverterDevice)
		for i := range fieldSensors {
			if i > 0 {
				fieldSensors[i].Device = events.IdDevice(inverterDevice)
			}
			sensors = append(sensors, fieldSensors[i])
		}

		ctx.Send(state.mqttActor, PublishHADiscovery{
			Sensors: sensors,
		})
		state.unsubscribe()
		state.behavior.Become(state.Done)
	case *actor.Restarting:
		state.unsubscribe()
	case *actor.Stopping:
		state.unsubscribe()
	default:
		state.logger.Debug("hadiscovery@device default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

func (state *HADiscoveryActor) unsubscribe() {
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
}
