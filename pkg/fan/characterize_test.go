package fan

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeFanRPMReader models a fan whose true stop/start thresholds are
// trueStop/trueStart: at or below trueStop it reads as stopped, at or above
// trueStart it reads as spinning, and it only ever reads pwmPath's current
// value (the same file Characterize itself writes), never a hidden oracle.
func fakeFanRPMReader(t *testing.T, pwmPath string, trueStop, trueStart byte) RPMReader {
	t.Helper()
	return func(ctx context.Context) (uint32, error) {
		data, err := os.ReadFile(pwmPath)
		require.NoError(t, err)
		duty, err := strconv.Atoi(strings.TrimSpace(string(data)))
		require.NoError(t, err)

		if duty >= int(trueStart) {
			return 300, nil
		}
		return 10, nil
	}
}

func TestCharacterizeFindsThresholds(t *testing.T) {
	dir := t.TempDir()
	pwmPath := filepath.Join(dir, "pwm1")
	require.NoError(t, os.WriteFile(pwmPath, []byte("0"), 0644))

	const trueStop, trueStart = byte(90), byte(110)
	start, stop, err := Characterize(context.Background(), pwmPath, fakeFanRPMReader(t, pwmPath, trueStop, trueStart))
	require.NoError(t, err)

	require.Greater(t, start, stop)
	require.LessOrEqual(t, stop, trueStart-1)
	require.GreaterOrEqual(t, start, trueStart)
}

func TestCharacterizeFailsWhenFanNeverSpinsUp(t *testing.T) {
	dir := t.TempDir()
	pwmPath := filepath.Join(dir, "pwm1")
	require.NoError(t, os.WriteFile(pwmPath, []byte("0"), 0644))

	neverSpins := func(ctx context.Context) (uint32, error) { return 0, nil }
	_, _, err := Characterize(context.Background(), pwmPath, neverSpins)
	require.Error(t, err)
}
