package fan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitutePercent(t *testing.T) {
	assert.Equal(t, "/bin/set-fan 42", substitutePercent("/bin/set-fan {{percent}}", 42))
	assert.Equal(t, "/bin/set-fan --pct=0 --force", substitutePercent("/bin/set-fan --pct={{percent}} --force", 0))
	assert.Equal(t, "/bin/set-fan", substitutePercent("/bin/set-fan", 50)) // no placeholder: no-op
}

func TestNewCmdFanRejectsEmptyTemplate(t *testing.T) {
	_, err := NewCmdFan("case", "", 0)
	assert.Error(t, err)
}

func TestCmdFanSetRunsSubstitutedCommand(t *testing.T) {
	f, err := NewCmdFan("case", "echo {{percent}}", 0)
	require.NoError(t, err)

	require.NoError(t, f.Set(context.Background(), NewSpeed(0.5)))
}

func TestCmdFanSetPropagatesCommandFailure(t *testing.T) {
	f, err := NewCmdFan("case", "false", 0)
	require.NoError(t, err)

	err = f.Set(context.Background(), NewSpeed(1))
	assert.Error(t, err)
}
