package fan

import "github.com/rs/zerolog/log"

// Speed is a fan-speed fraction in [0, 1]. It is never constructed outside
// [0, 1]; NewSpeed clips and logs a diagnostic rather than propagating an
// out-of-range value.
type Speed float64

// NewSpeed clips v to [0, 1].
func NewSpeed(v float64) Speed {
	if v < 0 {
		log.Warn().Str("subsys", "fan").Float64("value", v).Msg("speed below 0, clipping")
		return 0
	}
	if v > 1 {
		log.Warn().Str("subsys", "fan").Float64("value", v).Msg("speed above 1, clipping")
		return 1
	}
	return Speed(v)
}

// Percent returns the speed as a 0-100 percentage.
func (s Speed) Percent() float64 {
	return float64(s) * 100
}

// PWM converts the speed to a PWM duty byte in [0, 255], monotone
// non-decreasing in s.
func (s Speed) PWM() byte {
	v := int(float64(s)*255 + 0.5) // round half up
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return byte(v)
}

// PWMFromPercent converts a 0-100 percent minimum-duty configuration value
// into a duty byte, used for a fan's configured floor.
func PWMFromPercent(pct float64) byte {
	return NewSpeed(pct / 100).PWM()
}
