package server

import (
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"sunsynk2mqtt/internal/actor"
	"sunsynk2mqtt/pkg/sunsynk"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.POST("/frame", s.FrameIntakeHandler)
	e.GET("/frame/last", s.LastFrameHandler)

	return e
}

type measurementResponse struct {
	Id    string  `json:"id"`
	Raw   int64   `json:"raw"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type frameResponse struct {
	Serial       string                `json:"serial"`
	Timestamp    time.Time             `json:"timestamp"`
	Measurements []measurementResponse `json:"measurements"`
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, actor.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(actor.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

// FrameIntakeHandler accepts one raw telemetry frame, either as a binary body
// or as a hex string when the content type is text.
func (s *Server) FrameIntakeHandler(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 64*1024))
	if err != nil {
		return c.String(http.StatusBadRequest, "could not read request body")
	}
	if len(body) == 0 {
		return c.String(http.StatusBadRequest, "empty request body")
	}

	data := body
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, "text/") {
		data, err = hex.DecodeString(strings.TrimSpace(string(body)))
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid hex body")
		}
	}

	res, err := s.rootContext.RequestFuture(s.masterActor, actor.DecodeFrameRequest{Data: data}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "frame: FAIL")
	}
	switch response := res.(type) {
	case actor.DecodeFrameResponse:
		return c.JSON(http.StatusOK, frameToResponse(response.Frame))
	case actor.CommandErrorResponse:
		return c.String(http.StatusUnprocessableEntity, response.Error)
	default:
		return c.String(http.StatusServiceUnavailable, "frame: FAIL")
	}
}

func (s *Server) LastFrameHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, actor.GetLastFrameRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "frame: FAIL")
	}
	if response, ok := res.(actor.GetLastFrameResponse); ok {
		if response.Frame == nil {
			return c.String(http.StatusNotFound, "no frame decoded yet")
		}
		return c.JSON(http.StatusOK, frameToResponse(response.Frame))
	}
	return c.String(http.StatusServiceUnavailable, "frame: FAIL")
}

func frameToResponse(frame *sunsynk.DecodedFrame) frameResponse {
	measurements := make([]measurementResponse, 0, len(frame.Measurements))
	for _, m := range frame.Measurements {
		measurements = append(measurements, measurementResponse{
			Id:    m.Field.ID,
			Raw:   m.Raw,
			Value: m.Value,
			Unit:  m.Field.Unit,
		})
	}
	return frameResponse{
		Serial:       frame.Serial,
		Timestamp:    frame.Timestamp,
		Measurements: measurements,
	}
}
