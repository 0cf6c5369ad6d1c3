// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package wrapper

import (
	"image/color"
	"math"
	"math/rand"
)

const paletteSize = 256

// paletteColor maps c in [0 paletteSize) to a saturated color around the hue
// circle.
func paletteColor(c int) color.RGBA {
	const (
		saturation = 0.7
		value      = 0.9
	)
	h := float64(c%paletteSize) / paletteSize * 6
	i := math.Floor(h)
	f := h - i
	p := value * (1 - saturation)
	q := value * (1 - saturation*f)
	t := value * (1 - saturation*(1-f))

	var r, g, b float64
	switch int(i) {
	case 0:
		r, g, b = value, t, p
	case 1:
		r, g, b = q, value, p
	case 2:
		r, g, b = p, value, t
	case 3:
		r, g, b = p, q, value
	case 4:
		r, g, b = t, p, value
	default:
		r, g, b = value, p, q
	}
	return color.RGBA{
		R: uint8(math.Round(r * 255)),
		G: uint8(math.Round(g * 255)),
		B: uint8(math.Round(b * 255)),
		A: 255,
	}
}

func randomColor(rng *rand.Rand) color.RGBA {
	return paletteColor(rng.Intn(paletteSize))
}
