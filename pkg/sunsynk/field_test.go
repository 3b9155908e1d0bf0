package sunsynk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryIDsUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range Fields {
		assert.False(t, seen[f.ID], "duplicate field id %s", f.ID)
		seen[f.ID] = true
	}
}

func TestRegistryOffsetsInRange(t *testing.T) {
	width := NewDecoder().RawWidth
	for _, f := range Fields {
		assert.GreaterOrEqual(t, f.Offset, 0, f.ID)
		assert.LessOrEqual(t, f.Offset+width, FrameLength, f.ID)
	}
}

func TestRegistrySize(t *testing.T) {
	assert.Len(t, Fields, 20)
}

func TestConstructorsFixScaleBiasUnit(t *testing.T) {
	assert := assert.New(t)

	type conv struct {
		scale float64
		bias  float64
		unit  string
	}
	want := map[FieldType]conv{
		Power:         {1.0, 0, "W"},
		Voltage:       {0.1, 0, "V"},
		Current:       {0.01, 0, "A"},
		Temperature:   {0.1, -100.0, "°C"},
		Frequency:     {0.01, 0, "Hz"},
		Energy:        {0.1, 0, "kWh"},
		Charge:        {1.0, 0, "Ah"},
		StateOfCharge: {1.0, 0, "%"},
	}

	for _, f := range Fields {
		w, ok := want[f.Type]
		assert.True(ok, "unexpected field type %s", f.Type)
		assert.Equal(w.scale, f.Scale, f.ID)
		assert.Equal(w.bias, f.Bias, f.ID)
		assert.Equal(w.unit, f.Unit, f.ID)
	}
}

func TestFieldDecimals(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint(0), PowerField(216, "Grid", "grid_power").Decimals())
	assert.Equal(uint(1), VoltageField(176, "Grid", "grid_voltage").Decimals())
	assert.Equal(uint(2), CurrentField(258, "Battery", "battery_current").Decimals())
}
