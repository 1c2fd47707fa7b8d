package drive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntrusivenessOrdering(t *testing.T) {
	assert.Equal(t, Active.Intrusiveness(), Unknown.Intrusiveness())
	assert.Less(t, Active.Intrusiveness(), Standby.Intrusiveness())
	assert.Less(t, Standby.Intrusiveness(), Sleeping.Intrusiveness())
}

func TestMachineActiveToStandbyToSleepingToActive(t *testing.T) {
	m := newMachine(Active)
	require.Equal(t, Active, m.current())

	require.NoError(t, m.idleTimeout(context.Background()))
	require.Equal(t, Standby, m.current())

	require.NoError(t, m.spinDown(context.Background()))
	require.Equal(t, Sleeping, m.current())

	require.NoError(t, m.observedIO(context.Background()))
	require.Equal(t, Active, m.current())
}

func TestMachineActiveToSleepingDirectly(t *testing.T) {
	// MaybeSpinDown fires spinDown while the drive is still classified
	// Active (it hasn't yet observed a Standby tick) — the transition must
	// be permitted directly from Active, not only from Standby.
	m := newMachine(Active)
	require.NoError(t, m.spinDown(context.Background()))
	require.Equal(t, Sleeping, m.current())
}

func TestMachineUnknownClassificationFromAnyState(t *testing.T) {
	for _, initial := range []State{Active, Standby, Sleeping} {
		m := newMachine(initial)
		require.NoError(t, m.classifiedUnknown(context.Background()))
		require.Equal(t, Unknown, m.current())
	}
}

func TestMachineUnmodeledTransitionIsSilentNoop(t *testing.T) {
	// idleTimeout while already Sleeping isn't a modeled edge; firing it must
	// not error and must leave the state unchanged.
	m := newMachine(Sleeping)
	require.NoError(t, m.idleTimeout(context.Background()))
	require.Equal(t, Sleeping, m.current())
}

func TestMachineUnknownRecoversOnObservedIO(t *testing.T) {
	m := newMachine(Unknown)
	require.NoError(t, m.observedIO(context.Background()))
	require.Equal(t, Active, m.current())
}
