package sunsynk

const (
	// FrameLength is the exact size of a telemetry frame in bytes.
	FrameLength = 292
	// FrameHeader is the first byte of every valid frame.
	FrameHeader = 0xa5

	serialStart     = 11
	serialEnd       = 21
	datetimeOffset  = 37
	datetimeByteLen = 6
)

// Field describes where one measurement lives inside a frame and how its raw
// encoding converts to a physical value (physical = raw*Scale + Bias).
//
// Fields are only built through the per-quantity constructors below, so every
// field of a given type carries the same scale/bias/unit combination.
type Field struct {
	Type   FieldType
	Offset int
	Group  string
	Name   string
	ID     string
	Scale  float64
	Bias   float64
	Unit   string
}

func PowerField(offset int, group, id string) Field {
	return Field{
		Type:   Power,
		Offset: offset,
		Group:  group,
		Name:   "Power",
		ID:     id,
		Scale:  1.0,
		Unit:   "W",
	}
}

func VoltageField(offset int, group, id string) Field {
	return Field{
		Type:   Voltage,
		Offset: offset,
		Group:  group,
		Name:   "Voltage",
		ID:     id,
		Scale:  0.1,
		Unit:   "V",
	}
}

func CurrentField(offset int, group, id string) Field {
	return Field{
		Type:   Current,
		Offset: offset,
		Group:  group,
		Name:   "Current",
		ID:     id,
		Scale:  0.01,
		Unit:   "A",
	}
}

// NamedTemperatureField builds a temperature field with an explicit name for
// devices that report more than one temperature per group. Raw temperatures are
// encoded as unsigned offset-binary: raw 1000 is 0.0 °C.
func NamedTemperatureField(offset int, group, name, id string) Field {
	return Field{
		Type:   Temperature,
		Offset: offset,
		Group:  group,
		Name:   name,
		ID:     id,
		Scale:  0.1,
		Bias:   -100.0,
		Unit:   "°C",
	}
}

func TemperatureField(offset int, group, id string) Field {
	return NamedTemperatureField(offset, group, "Temperature", id)
}

func FrequencyField(offset int, group, id string) Field {
	return Field{
		Type:   Frequency,
		Offset: offset,
		Group:  group,
		Name:   "Frequency",
		ID:     id,
		Scale:  0.01,
		Unit:   "Hz",
	}
}

func EnergyField(offset int, group, name, id string) Field {
	// TODO: energy totals are probably 32-bit on the wire; the location of the
	// high half is still unknown, so they are read as 16-bit like the rest.
	return Field{
		Type:   Energy,
		Offset: offset,
		Group:  group,
		Name:   name,
		ID:     id,
		Scale:  0.1,
		Unit:   "kWh",
	}
}

func ChargeField(offset int, group, name, id string) Field {
	return Field{
		Type:   Charge,
		Offset: offset,
		Group:  group,
		Name:   name,
		ID:     id,
		Scale:  1.0,
		Unit:   "Ah",
	}
}

func StateOfChargeField(offset int, group, id string) Field {
	return Field{
		Type:   StateOfCharge,
		Offset: offset,
		Group:  group,
		Name:   "SOC",
		ID:     id,
		Scale:  1.0,
		Unit:   "%",
	}
}

// Decimals returns how many fraction digits the field's physical value can
// actually carry, derived from its scale.
func (f Field) Decimals() uint {
	switch {
	case f.Scale >= 1.0:
		return 0
	case f.Scale >= 0.1:
		return 1
	default:
		return 2
	}
}

// Fields is the registry of every decodable measurement, in wire-mapping order.
// It is constant after package init and shared by all decoders.
var Fields = []Field{
	EnergyField(70, "Battery", "Total charge", "battery_charge_total"),
	EnergyField(74, "Battery", "Total discharge", "battery_discharge_total"),
	EnergyField(82, "Grid", "Total import", "grid_import_total"),
	EnergyField(88, "Grid", "Total export", "grid_export_total"),
	FrequencyField(84, "Grid", "grid_frequency"),
	EnergyField(96, "Load", "Total consumption", "load_consumption_total"),
	NamedTemperatureField(106, "Inverter", "DC Temperature", "inverter_temperature_dc"),
	NamedTemperatureField(108, "Inverter", "AC Temperature", "inverter_temperature_ac"),
	EnergyField(118, "PV", "Total production", "pv_production_total"),
	ChargeField(140, "Battery", "Capacity", "battery_capacity"),
	VoltageField(176, "Grid", "grid_voltage"),
	VoltageField(184, "Load", "load_voltage"),
	PowerField(216, "Grid", "grid_power"),
	PowerField(228, "Load", "load_power"),
	TemperatureField(240, "Battery", "battery_temperature"),
	StateOfChargeField(244, "Battery", "battery_soc"),
	PowerField(248, "PV", "pv_power"),
	PowerField(256, "Battery", "battery_power"),
	CurrentField(258, "Battery", "battery_current"),
	FrequencyField(260, "Load", "load_frequency"),
}
