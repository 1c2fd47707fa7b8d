package control

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hddfancontrol/hddfancontrold/pkg/drive"
	"github.com/hddfancontrol/hddfancontrold/pkg/fan"
	"github.com/hddfancontrol/hddfancontrold/pkg/units"
)

// fakeBackend reports a fixed temperature (or error) and never actually
// touches any device.
type fakeBackend struct {
	name   string
	wakes  bool
	temp   units.Temperature
	err    error
	probes int
}

func (f *fakeBackend) Name() string            { return f.name }
func (f *fakeBackend) WakesSleepingDrive() bool { return f.wakes }
func (f *fakeBackend) Supports(ctx context.Context, device string) bool { return true }
func (f *fakeBackend) Probe(ctx context.Context, device string) (units.Temperature, error) {
	f.probes++
	return f.temp, f.err
}

func fixedPowerState(state drive.State) drive.PowerStateQuery {
	return func(ctx context.Context, device string) (drive.State, error) {
		return state, nil
	}
}

// fakeFan records every speed it was commanded to.
type fakeFan struct {
	name    string
	minDuty fan.Speed
	sets    []fan.Speed
}

func (f *fakeFan) Name() string         { return f.name }
func (f *fakeFan) MinDuty() fan.Speed   { return f.minDuty }
func (f *fakeFan) Set(ctx context.Context, s fan.Speed) error {
	f.sets = append(f.sets, s)
	return nil
}

func newTestDrive(t *testing.T, path string, state drive.State) *drive.Drive {
	t.Helper()
	d, err := drive.New(context.Background(), path, fixedPowerState(state))
	require.NoError(t, err)
	return d
}

func TestScenarioColdAndHotDrive(t *testing.T) {
	ctx := context.Background()
	th := units.Thresholds{Min: 30, Max: 50}

	a := &fakeBackend{name: "a", temp: 25}
	b := &fakeBackend{name: "b", temp: 45}

	loop := New(
		[]*DriveUnit{
			{Drive: newTestDrive(t, "/dev/sda", drive.Active), Backend: a, Thresholds: th},
			{Drive: newTestDrive(t, "/dev/sdb", drive.Active), Backend: b, Thresholds: th},
		},
		[]fan.Fan{&fakeFan{name: "pwm1", minDuty: fan.NewSpeed(0)}},
		nil, units.Thresholds{},
		0, false, 3, 0,
	)

	loop.tick(ctx)

	f := loop.fans[0].(*fakeFan)
	require.Len(t, f.sets, 1)
	assert.InDelta(t, 0.75, float64(f.sets[0]), 1e-9)
	assert.Equal(t, byte(191), f.sets[0].PWM())
}

func TestScenarioSleepingDriveNotProbed(t *testing.T) {
	ctx := context.Background()
	th := units.Thresholds{Min: 30, Max: 50}

	asleep := &fakeBackend{name: "drivetemp", wakes: false, temp: 99}
	awake := &fakeBackend{name: "drivetemp", wakes: false, temp: 60}

	loop := New(
		[]*DriveUnit{
			{Drive: newTestDrive(t, "/dev/sda", drive.Sleeping), Backend: asleep, Thresholds: th},
			{Drive: newTestDrive(t, "/dev/sdb", drive.Active), Backend: awake, Thresholds: th},
		},
		[]fan.Fan{&fakeFan{name: "pwm1", minDuty: fan.NewSpeed(0)}},
		nil, units.Thresholds{},
		0, false, 3, 0,
	)

	loop.tick(ctx)

	assert.Equal(t, 0, asleep.probes, "sleeping drive must not be probed")
	f := loop.fans[0].(*fakeFan)
	require.Len(t, f.sets, 1)
	assert.Equal(t, fan.NewSpeed(1.0), f.sets[0])
}

func TestConsecutiveFailureBudgetTriggersFailSafe(t *testing.T) {
	ctx := context.Background()
	th := units.Thresholds{Min: 30, Max: 50}

	failing := &fakeBackend{name: "hdparm_sct", err: assert.AnError}

	du := &DriveUnit{Drive: newTestDrive(t, "/dev/sda", drive.Active), Backend: failing, Thresholds: th}
	f := &fakeFan{name: "pwm1", minDuty: fan.NewSpeed(0)}
	loop := New([]*DriveUnit{du}, []fan.Fan{f}, nil, units.Thresholds{}, 0, false, 2, 0)

	loop.tick(ctx) // failure 1, within budget: holds cold (no prior temperature)
	loop.tick(ctx) // failure 2, within budget
	loop.tick(ctx) // failure 3, exceeds budget of 2: fail-safe

	require.Len(t, f.sets, 3)
	assert.Equal(t, fan.NewSpeed(1.0), f.sets[2], "budget exhaustion must command maximum speed")
}

func TestMinDutyFloorAppliedUnlessZeroFloor(t *testing.T) {
	ctx := context.Background()
	th := units.Thresholds{Min: 30, Max: 50}

	cold := &fakeBackend{name: "drivetemp", temp: 20}
	du := &DriveUnit{Drive: newTestDrive(t, "/dev/sda", drive.Active), Backend: cold, Thresholds: th}

	floored := &fakeFan{name: "pwm1", minDuty: fan.NewSpeed(0.2)}
	loop := New([]*DriveUnit{du}, []fan.Fan{floored}, nil, units.Thresholds{}, 0, false, 3, 0)
	loop.tick(ctx)
	require.Len(t, floored.sets, 1)
	assert.Equal(t, fan.NewSpeed(0.2), floored.sets[0])

	zeroFloor := &fakeFan{name: "pwm1", minDuty: fan.NewSpeed(0.2)}
	loop2 := New([]*DriveUnit{du}, []fan.Fan{zeroFloor}, nil, units.Thresholds{}, 0, true, 3, 0)
	loop2.tick(ctx)
	require.Len(t, zeroFloor.sets, 1)
	assert.Equal(t, fan.NewSpeed(0), zeroFloor.sets[0])
}
