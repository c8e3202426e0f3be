package amm

import (
	"fmt"
	"strings"
)

// Direction is the side of the pool a trade enters on.
type Direction uint8

const (
	XToY Direction = iota
	YToX
)

func (d Direction) String() string {
	switch d {
	case XToY:
		return "x-to-y"
	case YToX:
		return "y-to-x"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == XToY {
		return YToX
	}
	return XToY
}

// ParseDirection accepts "x-to-y"/"xy" and "y-to-x"/"yx", case-insensitive.
func ParseDirection(input string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "x-to-y", "xy", "x2y":
		return XToY, nil
	case "y-to-x", "yx", "y2x":
		return YToX, nil
	default:
		return 0, fmt.Errorf("invalid direction: %q", input)
	}
}

// MarshalText encodes the direction as its string form.
func (d Direction) MarshalText() ([]byte, error) {
	if d != XToY && d != YToX {
		return nil, fmt.Errorf("invalid direction: %d", uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction from its string form.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
