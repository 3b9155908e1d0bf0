package events

// Sensor Model
type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, total_increasing (for acc energy)
	DeviceClass       string // voltage, current, power, energy
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
}

// EventStream model
type GenericSensorUpdateEvent struct {
	Id string
}

type SensorUpdateEvent struct {
	GenericSensorUpdateEvent
	Value    float64
	Decimals uint
}

type TextSensorUpdateEvent struct {
	GenericSensorUpdateEvent
	Value string
}

type BridgeStateUpdateEvent struct {
	GenericSensorUpdateEvent
	Value bool
}

// DeviceOnlineEvent is published the first time a frame from a device is
// decoded, once the device identity (serial) is known.
type DeviceOnlineEvent struct {
	Serial string
}
