package actor

import (
	"fmt"
	"testing"
	"time"

	"sunsynk2mqtt/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
)

func TestMasterActor(t *testing.T) {
	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	logger := testLogger()

	as := testActorSystem(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterActor(cfg, func(es *eventstream.EventStream) *DecoderActor {
			return NewDecoderActor(&cfg, es, logger)
		}, func(es *eventstream.EventStream) *MQTTActor {
			return NewTestMQTTActor(&cfg, es, logger)
		}, logger)
	})
	pid, err := context.SpawnNamed(props, "master")
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	healthResp, ok := res.(ActorHealthResponse)
	assert.True(ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.NotNil(healthResp)

	assert.True(healthResp.Healthy, "healthy is true")

	// frame requests are routed to the decoder child
	res, err = context.RequestFuture(pid, DecodeFrameRequest{Data: validTestFrame()}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	decodeResp, ok := res.(DecodeFrameResponse)
	assert.True(ok)
	assert.Equal(testFrameSerial, decodeResp.Frame.Serial)

	res, err = context.RequestFuture(pid, GetLastFrameRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	lastResp, ok := res.(GetLastFrameResponse)
	assert.True(ok)
	assert.NotNil(lastResp.Frame)

	context.Stop(pid)

	as.Shutdown()
}
