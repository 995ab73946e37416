package tempmon

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"periph.io/x/conn/v3/physic"
)

func TestMilliCelsius_Display(t *testing.T) {
	tests := []struct {
		given    MilliCelsius
		whole    int32
		fraction int32
		str      string
	}{
		{-1500, -1, 500, "-1.500 C"},
		{25000, 25, 0, "25.000 C"},
		{-25000, -25, 0, "-25.000 C"},
		{0, 0, 0, "0.000 C"},
		{127937, 127, 937, "127.937 C"},
		{-128000, -128, 0, "-128.000 C"},
		{62, 0, 62, "0.062 C"},
		{-62, 0, 62, "-0.062 C"},
		{-1062, -1, 62, "-1.062 C"},
	}
	for _, test := range tests {
		t.Run(fmt.Sprint(int32(test.given)), func(t *testing.T) {
			assert.Equal(t, test.whole, test.given.Whole())
			assert.Equal(t, test.fraction, test.given.Fraction())
			assert.Equal(t, test.str, test.given.String())
		})
	}
}

func TestMilliCelsius_Conversions(t *testing.T) {
	assert.Equal(t, 25.0, MilliCelsius(25000).Celsius())
	assert.InDelta(t, -0.062, MilliCelsius(-62).Celsius(), 1e-9)
	assert.Equal(t, physic.ZeroCelsius+25*physic.Kelvin, MilliCelsius(25000).Physic())
	assert.Equal(t, physic.ZeroCelsius-25*physic.Kelvin, MilliCelsius(-25000).Physic())
}
