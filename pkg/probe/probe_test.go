package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hddfancontrol/hddfancontrold/pkg/hfcerr"
	"github.com/hddfancontrol/hddfancontrold/pkg/units"
)

func TestCheckPlausibleAcceptsInRange(t *testing.T) {
	got, err := checkPlausible("test", 37)
	assert.NoError(t, err)
	assert.Equal(t, units.Temperature(37), got)
}

func TestCheckPlausibleRejectsOutOfRange(t *testing.T) {
	_, err := checkPlausible("test", 200)
	assert.ErrorIs(t, err, hfcerr.ErrImplausibleValue)

	_, err = checkPlausible("test", -100)
	assert.ErrorIs(t, err, hfcerr.ErrImplausibleValue)
}

func TestBackendNamesAreDistinct(t *testing.T) {
	backends := []Backend{
		NewDrivetemp(), NewHdparmSct(), NewHddtemp(),
		NewSmartctlAttr(), NewSmartctlScsi(), NewSmartctlNvme(),
	}
	seen := map[string]bool{}
	for _, b := range backends {
		assert.False(t, seen[b.Name()], "duplicate backend name %s", b.Name())
		seen[b.Name()] = true
	}
}
