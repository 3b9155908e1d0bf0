package actor

import (
	"sunsynk2mqtt/pkg/sunsynk"
)

type ActorHealthRequest struct {
}

type ActorHealthResponse struct {
	Id      string
	Healthy bool
	State   string
	Error   string
}

type CommandErrorResponse struct {
	Error string
}

// DecodeFrameRequest carries one raw telemetry frame into the pipeline.
type DecodeFrameRequest struct {
	Data []byte
}

type DecodeFrameResponse struct {
	Frame *sunsynk.DecodedFrame
}

type GetLastFrameRequest struct {
}

type GetLastFrameResponse struct {
	Frame *sunsynk.DecodedFrame
}
