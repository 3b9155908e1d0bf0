package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"sunsynk2mqtt/pkg/sunsynk"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE    = "bridge"
	SENSOR_ID_LAST_FRAME_TIME = "last_frame_time"

	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"

	DEVICE_CLASS_BATTERY      = "battery"
	DEVICE_CLASS_CURRENT      = "current"
	DEVICE_CLASS_ENERGY       = "energy"
	DEVICE_CLASS_FREQUENCY    = "frequency"
	DEVICE_CLASS_POWER        = "power"
	DEVICE_CLASS_TEMPERATURE  = "temperature"
	DEVICE_CLASS_VOLTAGE      = "voltage"
	DEVICE_CLASS_CONNECTIVITY = "connectivity"
	DEVICE_CLASS_TIMESTAMP    = "timestamp"

	ENTITY_CLASS_DIAGNOSTIC = "diagnostic"

	SENSOR_TYPE_SENSOR = "sensor"
	SENSOR_TYPE_BINARY = "binary_sensor"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("sunsynk_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "sunsynk2mqtt",
		Model:        "Sunsynk2MQTT",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Sunsynk2MQTT %s", md5HashShort(baseTopic)),
	}
}

func InverterDevice(serial string) Device {
	return Device{
		Id:           fmt.Sprintf("ssk_inverter_%s", md5HashShort(serial)),
		Manufacturer: "Sunsynk",
		Model:        "Hybrid inverter",
		Name:         fmt.Sprintf("Sunsynk %s", serial),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

// FieldSensors builds one sensor definition per registry field, plus the frame
// timestamp sensor. HA classes are derived from the field's quantity type.
func FieldSensors(inverterDevice Device) []GenericSensor {

	var sensors []GenericSensor

	for _, field := range sunsynk.Fields {
		sensors = append(sensors, GenericSensor{
			Device:            inverterDevice,
			Id:                field.ID,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("%s %s", field.Group, field.Name),
			StateClass:        fieldStateClass(field),
			DeviceClass:       fieldDeviceClass(field),
			UnitOfMeasurement: field.Unit,
			Icon:              fieldIcon(field),
			UniqueId:          uniqueId(inverterDevice.Id, field.ID),
		})
	}

	// Last frame time
	sensors = append(sensors, GenericSensor{
		Device:         inverterDevice,
		Id:             SENSOR_ID_LAST_FRAME_TIME,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Last frame time",
		DeviceClass:    DEVICE_CLASS_TIMESTAMP,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(inverterDevice.Id, SENSOR_ID_LAST_FRAME_TIME),
	})

	return sensors
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

// DecodedFrameToUpdateEvents maps a decoded frame to eventstream updates, one
// per measurement plus the frame timestamp, in registry order.
func DecodedFrameToUpdateEvents(frame *sunsynk.DecodedFrame) []any {
	evs := make([]any, 0, len(frame.Measurements)+1)
	for _, m := range frame.Measurements {
		evs = append(evs, SensorUpdateEvent{
			GenericSensorUpdateEvent: GenericSensorUpdateEvent{
				Id: m.Field.ID,
			},
			Value:    m.Value,
			Decimals: m.Field.Decimals(),
		})
	}
	evs = append(evs, TextSensorUpdateEvent{
		GenericSensorUpdateEvent: GenericSensorUpdateEvent{
			Id: SENSOR_ID_LAST_FRAME_TIME,
		},
		Value: frame.Timestamp.Format(time.RFC3339),
	})
	return evs
}

func fieldDeviceClass(field sunsynk.Field) string {
	switch field.Type {
	case sunsynk.Power:
		return DEVICE_CLASS_POWER
	case sunsynk.Voltage:
		return DEVICE_CLASS_VOLTAGE
	case sunsynk.Current:
		return DEVICE_CLASS_CURRENT
	case sunsynk.Energy:
		return DEVICE_CLASS_ENERGY
	case sunsynk.Frequency:
		return DEVICE_CLASS_FREQUENCY
	case sunsynk.Temperature:
		return DEVICE_CLASS_TEMPERATURE
	case sunsynk.StateOfCharge:
		return DEVICE_CLASS_BATTERY
	default:
		// Ah capacity has no matching HA device class
		return ""
	}
}

func fieldStateClass(field sunsynk.Field) string {
	if field.Type == sunsynk.Energy {
		return STATE_CLASS_TOTAL_INCREASING
	}
	return STATE_CLASS_MEASUREMENT
}

func fieldIcon(field sunsynk.Field) string {
	switch {
	case field.Type == sunsynk.Charge:
		return "mdi:battery-high"
	case field.Group == "PV":
		return "mdi:solar-power"
	case field.Type == sunsynk.Frequency:
		return "mdi:sine-wave"
	default:
		return ""
	}
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
