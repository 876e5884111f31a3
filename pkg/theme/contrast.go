package theme

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// GetLuminance returns the relative luminance of a hex color under the
// WCAG formula: 0 is black, 1 is white. Unparseable colors count as black.
func GetLuminance(hexColor string) float64 {
	r, g, b := hexToRGB(hexColor)
	if r < 0 {
		return 0
	}
	rs := gammaSRGB(float64(r) / 255.0)
	gs := gammaSRGB(float64(g) / 255.0)
	bs := gammaSRGB(float64(b) / 255.0)
	return 0.2126*rs + 0.7152*gs + 0.0722*bs
}

// gammaSRGB linearizes one sRGB channel.
func gammaSRGB(val float64) float64 {
	if val <= 0.03928 {
		return val / 12.92
	}
	return math.Pow((val+0.055)/1.055, 2.4)
}

// GetContrastRatio returns the WCAG contrast between two colors, from 1
// (identical) to 21 (black on white).
func GetContrastRatio(fg, bg string) float64 {
	l1 := GetLuminance(fg)
	l2 := GetLuminance(bg)
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}

// EnsureContrast steps fg lighter or darker until it meets minRatio
// against bg, ending at pure black or white when stepping is not enough.
// 4.5 is the AA text ratio; 3.0 suits single-cell indicators.
func EnsureContrast(fg, bg string, minRatio float64) string {
	if GetContrastRatio(fg, bg) >= minRatio {
		return fg
	}

	bgLum := GetLuminance(bg)
	toward := 1.0 // toward white
	if GetLuminance(fg) <= bgLum {
		toward = -1.0
	}
	for adjustment := 0.1; adjustment <= 1.0; adjustment += 0.1 {
		adjusted := adjustColor(fg, toward*adjustment)
		if GetContrastRatio(adjusted, bg) >= minRatio {
			return adjusted
		}
	}

	if bgLum > 0.5 {
		return "#000000"
	}
	return "#ffffff"
}

// DeriveTextColor picks black or white text for the given background,
// preferring white on anything dark or saturated.
func DeriveTextColor(bgColor string) string {
	if GetContrastRatio("#ffffff", bgColor) >= 3.0 {
		return "#ffffff"
	}
	if GetContrastRatio("#000000", bgColor) >= 3.0 {
		return "#000000"
	}
	if IsLightColor(bgColor) {
		return "#000000"
	}
	return "#ffffff"
}

// IsLightColor reports whether the color is closer to white than black.
func IsLightColor(hexColor string) bool {
	return GetLuminance(hexColor) > 0.5
}

// hexToRGB parses #rrggbb; invalid input yields -1 channels.
func hexToRGB(hexColor string) (int64, int64, int64) {
	hex := strings.TrimPrefix(hexColor, "#")
	if len(hex) != 6 {
		return -1, -1, -1
	}
	var ch [3]int64
	for i := range ch {
		v, err := strconv.ParseInt(hex[2*i:2*i+2], 16, 64)
		if err != nil {
			return -1, -1, -1
		}
		ch[i] = v
	}
	return ch[0], ch[1], ch[2]
}

// adjustColor moves a color toward white (positive amount) or black
// (negative amount), 1.0 being all the way.
func adjustColor(hexColor string, amount float64) string {
	r, g, b := hexToRGB(hexColor)
	if r < 0 {
		return hexColor
	}
	if amount >= 0 {
		return rgbToHex(
			r+int64(float64(255-r)*amount),
			g+int64(float64(255-g)*amount),
			b+int64(float64(255-b)*amount))
	}
	m := 1.0 + amount
	return rgbToHex(int64(float64(r)*m), int64(float64(g)*m), int64(float64(b)*m))
}

func rgbToHex(r, g, b int64) string {
	return fmt.Sprintf("#%02x%02x%02x", clamp8(r), clamp8(g), clamp8(b))
}

func clamp8(v int64) int64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
