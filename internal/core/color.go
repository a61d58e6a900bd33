package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGBA color as stored alongside cards and categories.
type Color struct {
	R, G, B, A uint8
}

var (
	DefaultCardColor     = Color{R: 0x32, G: 0xad, B: 0xe6, A: 0xff} // cyan
	DefaultCategoryColor = Color{R: 0x8e, G: 0x8e, B: 0x93, A: 0xff} // gray

	// form defaults
	DefaultCardFormColor     = Color{R: 0x00, G: 0x7a, B: 0xff, A: 0xff} // blue
	DefaultCategoryFormColor = Color{R: 0xff, G: 0x3b, B: 0x30, A: 0xff} // red
)

// Encode serializes the color to its 4-byte stored form.
func (c Color) Encode() []byte {
	return []byte{c.R, c.G, c.B, c.A}
}

// DecodeColor parses the stored form. ok is false for anything that is not
// exactly four bytes.
func DecodeColor(b []byte) (Color, bool) {
	if len(b) != 4 {
		return Color{}, false
	}
	return Color{R: b[0], G: b[1], B: b[2], A: b[3]}, true
}

// ParseHexColor parses "#rrggbb" or "#rrggbbaa" (leading '#' optional).
func ParseHexColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if len(s) == 6 {
		v = v<<8 | 0xff
	}
	return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Hex renders the color as "#rrggbb", the value an HTML color input expects.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// CSS renders the color with its alpha channel as a CSS rgba() value.
func (c Color) CSS(opacity float64) string {
	a := float64(c.A) / 255 * opacity
	return fmt.Sprintf("rgba(%d, %d, %d, %.2f)", c.R, c.G, c.B, a)
}
