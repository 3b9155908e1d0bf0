package events

import (
	"testing"
	"time"

	"sunsynk2mqtt/pkg/sunsynk"

	"github.com/stretchr/testify/assert"
)

func TestFieldSensors(t *testing.T) {
	assert := assert.New(t)

	device := InverterDevice("2107188706")
	sensors := FieldSensors(device)

	// one per registry field plus the frame time sensor
	assert.Len(sensors, len(sunsynk.Fields)+1)

	byId := map[string]GenericSensor{}
	for _, s := range sensors {
		byId[s.Id] = s
	}

	soc := byId["battery_soc"]
	assert.Equal(DEVICE_CLASS_BATTERY, soc.DeviceClass)
	assert.Equal(STATE_CLASS_MEASUREMENT, soc.StateClass)
	assert.Equal("%", soc.UnitOfMeasurement)

	energy := byId["battery_charge_total"]
	assert.Equal(DEVICE_CLASS_ENERGY, energy.DeviceClass)
	assert.Equal(STATE_CLASS_TOTAL_INCREASING, energy.StateClass)

	lastFrame := byId[SENSOR_ID_LAST_FRAME_TIME]
	assert.Equal(DEVICE_CLASS_TIMESTAMP, lastFrame.DeviceClass)
	assert.Equal(ENTITY_CLASS_DIAGNOSTIC, lastFrame.EntityCategory)
}

func TestDecodedFrameToUpdateEvents(t *testing.T) {
	assert := assert.New(t)

	ts := time.Date(2024, 8, 23, 12, 30, 45, 0, time.UTC)
	frame := &sunsynk.DecodedFrame{
		Serial:    "2107188706",
		Timestamp: ts,
		Measurements: []sunsynk.Measurement{
			{Field: sunsynk.Fields[0], Raw: 85, Value: 85},
		},
	}

	evs := DecodedFrameToUpdateEvents(frame)
	assert.Len(evs, 2)

	update, ok := evs[0].(SensorUpdateEvent)
	assert.True(ok)
	assert.Equal(sunsynk.Fields[0].ID, update.Id)
	assert.Equal(float64(85), update.Value)

	text, ok := evs[1].(TextSensorUpdateEvent)
	assert.True(ok)
	assert.Equal(SENSOR_ID_LAST_FRAME_TIME, text.Id)
	assert.Equal("2024-08-23T12:30:45Z", text.Value)
}

func TestDeviceIds(t *testing.T) {
	assert := assert.New(t)

	a := InverterDevice("2107188706")
	b := InverterDevice("2107188707")
	assert.NotEqual(a.Id, b.Id)

	idOnly := IdDevice(a)
	assert.Equal(a.Id, idOnly.Id)
	assert.Empty(idOnly.Manufacturer)
}
