package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleAtaAttrTable = `
ID# ATTRIBUTE_NAME          FLAG     VALUE WORST THRESH TYPE      UPDATED  WHEN_FAILED RAW_VALUE
  5 Reallocated_Sector_Ct   0x0033   100   100   010    Pre-fail  Always       -       0
190 Airflow_Temperature_Cel 0x0022   071   055   045    Old_age   Always       -       29 (Min/Max 19/35)
194 Temperature_Celsius     0x0022   071   055   000    Old_age   Always       -       29 (0 18 0 0 0)
`

func TestAttr194Regex(t *testing.T) {
	m := attr194Re.FindSubmatch([]byte(sampleAtaAttrTable))
	assert.NotNil(t, m)
	assert.Equal(t, "29", string(m[1]))
}

func TestAttr190FallbackWhen194Absent(t *testing.T) {
	withoutAttr194 := `190 Airflow_Temperature_Cel 0x0022   071   055   045    Old_age   Always       -       31 (Min/Max 19/35)`
	m := attr194Re.FindSubmatch([]byte(withoutAttr194))
	assert.Nil(t, m)

	m = attr190Re.FindSubmatch([]byte(withoutAttr194))
	assert.NotNil(t, m)
	assert.Equal(t, "31", string(m[1]))
}

func TestScsiTempRegex(t *testing.T) {
	out := "Current Drive Temperature:     38 C\n"
	m := scsiTempRe.FindSubmatch([]byte(out))
	assert.NotNil(t, m)
	assert.Equal(t, "38", string(m[1]))
}

func TestNvmeTempRegex(t *testing.T) {
	out := "Temperature:                        42 Celsius\n"
	m := nvmeTempRe.FindSubmatch([]byte(out))
	assert.NotNil(t, m)
	assert.Equal(t, "42", string(m[1]))
}

func TestParseSmartctlIntRejectsGarbage(t *testing.T) {
	_, err := parseSmartctlInt("smartctl_attr", "not-a-number")
	assert.Error(t, err)
}

func TestParseSmartctlIntRejectsImplausible(t *testing.T) {
	_, err := parseSmartctlInt("smartctl_attr", "200")
	assert.Error(t, err)
}
