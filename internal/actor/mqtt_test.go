package actor

import (
	"fmt"
	"testing"
	"time"

	"sunsynk2mqtt/internal/config"
	"sunsynk2mqtt/internal/events"
	"sunsynk2mqtt/internal/mqtt"
	"sunsynk2mqtt/internal/util"
	"sunsynk2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {
	assert := assert.New(t)

	cfg := util.LoadTestConfig()

	logger := testLogger()

	as := testActorSystem(logger)

	context := as.Root

	es := eventstream.EventStream{}

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, &es, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(ActorHealthResponse)
	assert.True(ok)
	assert.NotNil(resp)

	es.Publish(events.SensorUpdateEvent{
		GenericSensorUpdateEvent: events.GenericSensorUpdateEvent{
			Id: "battery_soc",
		},
		Value: 85,
	})
	es.Publish(events.SensorUpdateEvent{
		GenericSensorUpdateEvent: events.GenericSensorUpdateEvent{
			Id: "battery_voltage",
		},
		Value:    51.2,
		Decimals: 1,
	})

	time.Sleep(1 * time.Second)

	context.Stop(pid)

	time.Sleep(1 * time.Second)

	as.Shutdown()
}

func TestEvent2MQTTMessage(t *testing.T) {
	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	es := eventstream.EventStream{}
	state := NewTestMQTTActor(&cfg, &es, testLogger())
	state.client = mqtt.CreateMQTTClient(&cfg, mqtt.OptsFromConfig(&cfg), nil, nil)

	msg := state.event2MQTTMessage(events.SensorUpdateEvent{
		GenericSensorUpdateEvent: events.GenericSensorUpdateEvent{
			Id: "battery_voltage",
		},
		Value:    51.2,
		Decimals: 1,
	})
	assert.NotNil(msg)
	assert.Equal("sunsynk/sensor/battery_voltage/state", msg.topic)
	assert.Equal("51.2", msg.message)

	msg = state.event2MQTTMessage(events.SensorUpdateEvent{
		GenericSensorUpdateEvent: events.GenericSensorUpdateEvent{
			Id: "battery_soc",
		},
		Value: 85,
	})
	assert.NotNil(msg)
	assert.Equal("85", msg.message)

	msg = state.event2MQTTMessage(events.TextSensorUpdateEvent{
		GenericSensorUpdateEvent: events.GenericSensorUpdateEvent{
			Id: events.SENSOR_ID_LAST_FRAME_TIME,
		},
		Value: "2024-08-23T12:30:45Z",
	})
	assert.NotNil(msg)
	assert.Equal("2024-08-23T12:30:45Z", msg.message)

	msg = state.event2MQTTMessage(events.BridgeStateUpdateEvent{Value: true})
	assert.NotNil(msg)
	assert.Equal("online", msg.message)
	assert.True(msg.retain)

	msg = state.event2MQTTMessage(events.DeviceOnlineEvent{Serial: "X"})
	assert.Nil(msg)
}

func NewTestMQTTActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:      config,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		logger:      actorutil.ActorLogger("mqtt", logger),
		eventStream: eventStream,
	}
	act.behavior.Become(act.DummyReceive)
	return act
}

func (state *MQTTActor) DummyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil, nil)
		state.eventStreamSub = state.eventStream.Subscribe(func(value any) {
			ctx.Send(ctx.Self(), OnEventStreamMessage{
				message: value,
			})
		})
	case ActorHealthRequest:
		state.logger.Debug("mqtt@dummy ActorHealthRequest")
		// respond health check request
		ctx.Respond(ActorHealthResponse{
			Id:      MQTT_ACTOR_ID,
			Healthy: true,
		})
	case OnEventStreamMessage:
		// receive message from event bus and log instead of publishing
		state.logger.Debug("mqtt@dummy OnEventStreamMessage", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if rawMsg := state.event2MQTTMessage(msg.message); rawMsg != nil {
			state.logger.Debug("mqtt@dummy publish", zap.String("topic", rawMsg.topic), zap.String("message", rawMsg.message))
		}
	}
}
