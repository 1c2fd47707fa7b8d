package fan

import (
	"context"
	"fmt"

	shellwords "github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/hddfancontrol/hddfancontrold/pkg/subproc"
)

// CmdFan drives a fan through an external command instead of sysfs PWM. It
// has no learned stop/start thresholds — min duty is its only constraint,
// enforced by the caller like every other Fan.
type CmdFan struct {
	name     string
	template string // e.g. "/usr/local/bin/set-fan-speed.sh {{percent}}"
	minDuty  Speed
}

// NewCmdFan builds a command-backed fan. template must contain the
// substring "{{percent}}", replaced at Set time with an integer 0-100; the
// resulting line is split with shell-word semantics (quoting, escaping) so a
// template embedding spaces or flags is not handed to /bin/sh -c, which
// would let a malformed config value execute arbitrary shell.
func NewCmdFan(name, template string, minDutyPct float64) (*CmdFan, error) {
	if template == "" {
		return nil, fmt.Errorf("fan %s: empty command template", name)
	}
	return &CmdFan{
		name:     name,
		template: template,
		minDuty:  NewSpeed(minDutyPct / 100),
	}, nil
}

// Name implements Fan.
func (f *CmdFan) Name() string { return f.name }

// MinDuty implements Fan.
func (f *CmdFan) MinDuty() Speed { return f.minDuty }

// Set implements Fan by substituting the percent placeholder and invoking
// the resulting command line.
func (f *CmdFan) Set(ctx context.Context, speed Speed) error {
	pct := int(speed.Percent() + 0.5)
	line := substitutePercent(f.template, pct)

	words, err := shellwords.Split(line)
	if err != nil {
		return fmt.Errorf("fan %s: parse command %q: %w", f.name, line, err)
	}
	if len(words) == 0 {
		return fmt.Errorf("fan %s: empty command after substitution", f.name)
	}

	res, err := subproc.Run(ctx, nil, words[0], words[1:]...)
	if err != nil {
		return fmt.Errorf("fan %s: %w", f.name, err)
	}

	log.Debug().Str("subsys", "fan").Str("fan", f.name).Int("percent", pct).
		Bytes("stdout", res.Stdout).Msg("command fan set")
	return nil
}

func substitutePercent(template string, pct int) string {
	out := make([]byte, 0, len(template))
	placeholder := "{{percent}}"
	for i := 0; i < len(template); {
		if i+len(placeholder) <= len(template) && template[i:i+len(placeholder)] == placeholder {
			out = append(out, []byte(fmt.Sprintf("%d", pct))...)
			i += len(placeholder)
			continue
		}
		out = append(out, template[i])
		i++
	}
	return string(out)
}
