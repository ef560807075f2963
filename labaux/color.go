package labaux

import (
	"image/color"

	labrender "github.com/LT-Kerrigan/LabRender"
	math "github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms1"
)

// RGBA converts c to a straight alpha color with components in [0,1].
func RGBA(c color.Color) [4]float32 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return [4]float32{
		float32(n.R) / math.MaxUint8,
		float32(n.G) / math.MaxUint8,
		float32(n.B) / math.MaxUint8,
		float32(n.A) / math.MaxUint8,
	}
}

// configColor converts a 3 or 4 component config value. Alpha defaults to 1.
func configColor(v []float32) [4]float32 {
	c := [4]float32{1, 1, 1, 1}
	copy(c[:], v)
	for i := range c {
		c[i] = ms1.Clamp(c[i], 0, 1)
	}
	return c
}

// Gradient returns a function blending c0 into c1 as t goes from 0 to 1.
// Hue, saturation and value are interpolated separately, taking the short
// way around the hue circle. Alpha is interpolated linearly.
func Gradient(c0, c1 [4]float32) func(t float32) [4]float32 {
	h0, s0, v0 := rgbToHSV(c0[0], c0[1], c0[2])
	h1, s1, v1 := rgbToHSV(c1[0], c1[1], c1[2])
	return func(t float32) [4]float32 {
		if t <= 0 {
			return c0
		} else if t >= 1 {
			return c1
		}
		r, g, b := hsvToRGB(interpHSV(h0, s0, v0, h1, s1, v1, t))
		return [4]float32{r, g, b, ms1.Interp(c0[3], c1[3], t)}
	}
}

// ApplyGradient colors every vertex of g by its height within the geometry
// bounds, c0 at the bottom and c1 at the top, and adds the color attribute.
func ApplyGradient(g *labrender.Geometry, c0, c1 [4]float32) {
	grad := Gradient(c0, c1)
	lo, hi := g.Bounds.Min.Y, g.Bounds.Max.Y
	g.Layout |= labrender.AttrColor
	for i := range g.Vertices {
		var t float32
		if hi > lo {
			t = (g.Vertices[i].Position.Y - lo) / (hi - lo)
		}
		g.Vertices[i].Color = grad(t)
	}
}

func interpHSV(h0, s0, v0, h1, s1, v1, t float32) (h, s, v float32) {
	switch {
	case h1-h0 > 0.5:
		h0 += 1
	case h1-h0 < -0.5:
		h1 += 1
	}
	h = ms1.Interp(h0, h1, t)
	if h >= 1 {
		h--
	}
	return h, ms1.Interp(s0, s1, t), ms1.Interp(v0, v1, t)
}

// hsvToRGB converts hue, saturation and value in [0,1] to RGB in [0,1].
func hsvToRGB(h, s, v float32) (r, g, b float32) {
	c := s * v
	x := c * (1 - math.Abs(math.Mod(h*6, 2)-1))
	m := v - c
	switch int(h * 6) {
	case 0, 6:
		r, g, b = c, x, 0
	case 1:
		r, g, b = x, c, 0
	case 2:
		r, g, b = 0, c, x
	case 3:
		r, g, b = 0, x, c
	case 4:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}

// rgbToHSV converts RGB in [0,1] to hue, saturation and value in [0,1].
func rgbToHSV(r, g, b float32) (h, s, v float32) {
	xmax := max(r, g, b)
	c := xmax - min(r, g, b)
	v = xmax
	switch {
	case c == 0:
		h = 0
	case v == r:
		h = (g - b) / (c * 6)
	case v == g:
		h = 1.0/3 + (b-r)/(c*6)
	default:
		h = 2.0/3 + (r-g)/(c*6)
	}
	if h < 0 {
		h++
	}
	if xmax > 0 {
		s = c / xmax
	}
	return h, s, v
}
