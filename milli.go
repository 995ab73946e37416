package tempmon

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// MilliCelsius is a temperature in thousandths of a degree Celsius.
type MilliCelsius int32

// Whole returns the integer degrees, truncated toward zero.
func (t MilliCelsius) Whole() int32 {
	return int32(t) / 1000
}

// Fraction returns the absolute value of the millidegree remainder (0-999).
// The sign is carried by Whole only, so -1500 is Whole -1 and Fraction 500.
func (t MilliCelsius) Fraction() int32 {
	r := int32(t) % 1000
	if r < 0 {
		return -r
	}
	return r
}

// String renders the temperature as "<whole>.<fraction> C". Values between -1 and 0
// degrees keep their minus sign even though Whole is 0.
func (t MilliCelsius) String() string {
	if t < 0 && t.Whole() == 0 {
		return fmt.Sprintf("-0.%03d C", t.Fraction())
	}
	return fmt.Sprintf("%d.%03d C", t.Whole(), t.Fraction())
}

func (t MilliCelsius) Celsius() float64 {
	return float64(t) / 1000
}

// Physic converts to the periph temperature representation.
func (t MilliCelsius) Physic() physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(t)*physic.MilliKelvin
}
