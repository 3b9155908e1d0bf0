package actor

import (
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"sunsynk2mqtt/internal/events"
	"sunsynk2mqtt/internal/util"
	"sunsynk2mqtt/internal/util/actorutil"
	"sunsynk2mqtt/pkg/sunsynk"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testFrameSerial = "ABCDEFGHIJ"

func testActorSystem(logger *zap.Logger) *actor.ActorSystem {
	return actorutil.NewActorSystemWithZapLogger(logger)
}

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

// validTestFrame builds a well-formed frame with the test serial and a fixed
// timestamp. All raw register values are zero.
func validTestFrame() []byte {
	buf := make([]byte, sunsynk.FrameLength)
	buf[0] = sunsynk.FrameHeader
	copy(buf[11:21], testFrameSerial)
	copy(buf[37:43], []byte{24, 8, 23, 12, 30, 45})
	return buf
}

func putTestRaw(buf []byte, offset int, value int16) {
	binary.BigEndian.PutUint16(buf[offset:], uint16(value))
}

func TestDecoderActorDecodeFrame(t *testing.T) {
	assert := assert.New(t)

	logger := testLogger()
	cfg := util.LoadTestConfig()

	as := testActorSystem(logger)
	context := as.Root

	es := eventstream.EventStream{}

	var mu sync.Mutex
	var received []any
	es.Subscribe(func(value any) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, value)
	})

	props := actor.PropsFromProducer(func() actor.Actor { return NewDecoderActor(&cfg, &es, logger) })
	pid := context.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	frame := validTestFrame()
	for _, field := range sunsynk.Fields {
		if field.ID == "battery_soc" {
			putTestRaw(frame, field.Offset, 85)
		}
	}

	result, err := context.RequestFuture(pid, DecodeFrameRequest{Data: frame}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(DecodeFrameResponse)
	assert.True(ok)
	assert.NotNil(resp.Frame)
	assert.Equal(testFrameSerial, resp.Frame.Serial)
	assert.Len(resp.Frame.Measurements, len(sunsynk.Fields))

	time.Sleep(500 * time.Millisecond)

	// one DeviceOnlineEvent, one update per field, plus the frame time sensor
	mu.Lock()
	assert.Len(received, len(sunsynk.Fields)+2)
	online, ok := received[0].(events.DeviceOnlineEvent)
	mu.Unlock()
	assert.True(ok)
	assert.Equal(testFrameSerial, online.Serial)

	// last frame is cached
	result, err = context.RequestFuture(pid, GetLastFrameRequest{}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	lastResp, ok := result.(GetLastFrameResponse)
	assert.True(ok)
	assert.NotNil(lastResp.Frame)
	assert.Equal(testFrameSerial, lastResp.Frame.Serial)

	context.Stop(pid)

	as.Shutdown()
}

func TestDecoderActorRejectsBadFrame(t *testing.T) {
	assert := assert.New(t)

	logger := testLogger()
	cfg := util.LoadTestConfig()

	as := testActorSystem(logger)
	context := as.Root

	es := eventstream.EventStream{}

	props := actor.PropsFromProducer(func() actor.Actor { return NewDecoderActor(&cfg, &es, logger) })
	pid := context.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	frame := validTestFrame()
	frame[0] = 0x00

	result, err := context.RequestFuture(pid, DecodeFrameRequest{Data: frame}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	errResp, ok := result.(CommandErrorResponse)
	assert.True(ok)
	assert.NotEmpty(errResp.Error)

	// decoder keeps working after a rejected frame
	result, err = context.RequestFuture(pid, DecodeFrameRequest{Data: validTestFrame()}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	_, ok = result.(DecodeFrameResponse)
	assert.True(ok)

	context.Stop(pid)

	as.Shutdown()
}
