package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHdparmTempRegex(t *testing.T) {
	out := "/dev/sda:\n drive temperature is 34 degrees Celsius, 93 degrees Fahrenheit\n"
	m := hdparmTempRe.FindSubmatch([]byte(out))
	assert.NotNil(t, m)
	assert.Equal(t, "34", string(m[1]))
}

func TestHdparmTempRegexNoMatch(t *testing.T) {
	out := "/dev/sda:\n SG_IO: bad/missing sense data\n"
	m := hdparmTempRe.FindSubmatch([]byte(out))
	assert.Nil(t, m)
}

func TestHdparmSctBackendProperties(t *testing.T) {
	h := NewHdparmSct()
	assert.Equal(t, "hdparm_sct", h.Name())
	assert.False(t, h.WakesSleepingDrive())
}
