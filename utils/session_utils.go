package utils

import (
	"strconv"
	"strings"
	"time"
)

const sessionSuffixLen = 9

// GenerateSessionID builds "session_<unix millis>_<suffix>". The suffix
// is the base-36 expansion of r, a random value in [0, 1), cut at 9
// digits; an expansion that terminates sooner is shorter (0.5 is "i").
func GenerateSessionID(now time.Time, r float64) string {
	return "session_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + base36Fraction(r, sessionSuffixLen)
}

func base36Fraction(r float64, n int) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	if r < 0 || r >= 1 {
		r = 0
	}
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n && r > 0; i++ {
		r *= 36
		d := int(r)
		b.WriteByte(digits[d])
		r -= float64(d)
	}
	return b.String()
}
