package actor

import (
	"fmt"
	"time"

	"sunsynk2mqtt/internal/config"
	"sunsynk2mqtt/internal/events"
	"sunsynk2mqtt/internal/util/actorutil"
	"sunsynk2mqtt/pkg/sunsynk"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const (
	DECODER_ACTOR_ID = "decoder"
)

// DecoderActor owns the frame decoder. It turns raw frames into sensor update
// events on the event stream and keeps the last successfully decoded frame for
// the ops surface.
type DecoderActor struct {
	config      *config.Config
	behavior    actor.Behavior
	stash       *Stash
	decoder     *sunsynk.Decoder
	eventStream *eventstream.EventStream
	lastFrame   *sunsynk.DecodedFrame
	announced   bool
	logger      *zap.Logger
}

type decodeTaskResult struct {
	frame   *sunsynk.DecodedFrame
	err     error
	replyTo *actor.PID
}

func NewDecoderActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *DecoderActor {
	act := &DecoderActor{
		config:      config,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		logger:      actorutil.ActorLogger("decoder", logger),
		eventStream: eventStream,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *DecoderActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *DecoderActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("decoder@starting started")

		loc, err := state.config.Decoder.Location()
		if err != nil {
			panic(err)
		}
		state.decoder = sunsynk.NewDecoder()
		state.decoder.Location = loc

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("decoder@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DecoderActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case ActorHealthRequest:
		state.logger.Debug("decoder@default ActorHealthRequest")
		ctx.Respond(ActorHealthResponse{
			Id:      DECODER_ACTOR_ID,
			Healthy: true,
			State:   "idle",
		})
	case GetLastFrameRequest:
		state.logger.Debug("decoder@default GetLastFrameRequest")
		ctx.Respond(GetLastFrameResponse{
			Frame: state.lastFrame,
		})
	case DecodeFrameRequest:
		state.logger.Debug("decoder@default DecodeFrameRequest", zap.Int("bytes", len(msg.Data)))
		sender := ctx.Sender()
		decoder := state.decoder
		data := msg.Data
		actorutil.NewBackgroundTask(ctx, func() (*decodeTaskResult, error) {
			frame, err := decoder.Decode(data)
			return &decodeTaskResult{
				frame:   frame,
				err:     err,
				replyTo: sender,
			}, nil
		}).WithTimeout(1 * time.Second).Recover(func(err error) decodeTaskResult {
			return decodeTaskResult{
				err:     err,
				replyTo: sender,
			}
		}).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDecodeReceive)
	default:
		state.logger.Debug("decoder@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DecoderActor) WaitingDecodeReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case decodeTaskResult:
		if msg.err != nil {
			state.logger.Warn("decoder@waiting frame rejected", zap.Error(msg.err))
			if msg.replyTo != nil {
				ctx.Send(msg.replyTo, CommandErrorResponse{
					Error: fmt.Sprintf("%s", msg.err),
				})
			}
		} else {
			state.onFrameDecoded(msg.frame)
			if msg.replyTo != nil {
				ctx.Send(msg.replyTo, DecodeFrameResponse{
					Frame: msg.frame,
				})
			}
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("decoder@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DecoderActor) onFrameDecoded(frame *sunsynk.DecodedFrame) {
	state.lastFrame = frame

	if !state.announced {
		state.announced = true
		state.eventStream.Publish(events.DeviceOnlineEvent{
			Serial: frame.Serial,
		})
	}

	for _, ev := range events.DecodedFrameToUpdateEvents(frame) {
		state.eventStream.Publish(ev)
	}
}
