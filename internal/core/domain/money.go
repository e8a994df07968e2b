package domain

import "fmt"

// Cents is the only monetary representation used by the engine.
type Cents int64

func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// NormalizedLine is one non-empty line of acquired text with its 1-based
// position in the source.
type NormalizedLine struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
}
