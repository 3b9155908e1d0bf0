package sunsynk

// FieldType classifies the physical quantity a Field carries. It drives no
// decoding behavior on its own; consumers use it for grouping and formatting.
type FieldType int

const (
	Charge FieldType = iota
	Current
	Energy
	Frequency
	Power
	StateOfCharge
	Temperature
	Voltage
)

func (t FieldType) String() string {
	switch t {
	case Charge:
		return "charge"
	case Current:
		return "current"
	case Energy:
		return "energy"
	case Frequency:
		return "frequency"
	case Power:
		return "power"
	case StateOfCharge:
		return "state_of_charge"
	case Temperature:
		return "temperature"
	case Voltage:
		return "voltage"
	default:
		return "unknown"
	}
}
