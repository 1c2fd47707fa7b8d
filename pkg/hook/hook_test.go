package hook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRunsLIFO(t *testing.T) {
	var order []int
	r := &Registry{}
	r.Register(func() { order = append(order, 1) })
	r.Register(func() { order = append(order, 2) })
	r.Register(func() { order = append(order, 3) })

	r.Run()

	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestRegistryRunIsIdempotent(t *testing.T) {
	calls := 0
	r := &Registry{}
	r.Register(func() { calls++ })

	r.Run()
	r.Run()
	r.Run()

	assert.Equal(t, 1, calls)
}

func TestRegistryRunContinuesAfterPanic(t *testing.T) {
	var ran []string
	r := &Registry{}
	r.Register(func() { ran = append(ran, "first") })
	r.Register(func() { panic("boom") })
	r.Register(func() { ran = append(ran, "last") })

	assert.NotPanics(t, func() { r.Run() })
	assert.Equal(t, []string{"last", "first"}, ran)
}

func TestRegistryRunOnEmptyIsNoop(t *testing.T) {
	r := &Registry{}
	assert.NotPanics(t, func() { r.Run() })
}
