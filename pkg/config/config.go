// Package config loads the INI configuration file described in
// SPEC_FULL.md §6 into the structures the rest of the application wires
// together at startup.
package config

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/hddfancontrol/hddfancontrold/pkg/hfcerr"
	"github.com/hddfancontrol/hddfancontrold/pkg/units"
)

// FanSection describes one [fan.<name>] block. Exactly one of Path or
// Command is set, selecting a PwmFan or a CmdFan respectively.
type FanSection struct {
	Name string

	// PWM variant.
	Path        string
	StartPWM    byte
	StopPWM     byte
	StopKnown   bool
	Characterize bool // true if start_pwm/stop_pwm were omitted and must be learned at startup

	// Command variant.
	Command string

	MinDutyPct float64
}

// IsCommand reports whether this section describes a command-backed fan.
func (f FanSection) IsCommand() bool { return f.Command != "" }

// Config is the fully parsed, validated configuration.
type Config struct {
	DrivePaths []string

	Thresholds units.Thresholds

	Fans []FanSection

	IntervalSeconds      int
	SpindownIdleSeconds  int
	ZeroFloor            bool
	MaxConsecutiveFails  int

	SensorPaths []string

	LogLevel string
}

const (
	defaultIntervalSeconds     = 20
	defaultMaxConsecutiveFails = 3
	defaultLogLevel            = "info"
)

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}

	cfg := &Config{
		IntervalSeconds:     defaultIntervalSeconds,
		MaxConsecutiveFails: defaultMaxConsecutiveFails,
		LogLevel:            defaultLogLevel,
	}

	drivesSec := f.Section("drives")
	cfg.DrivePaths = splitList(drivesSec.Key("paths").String())
	if len(cfg.DrivePaths) == 0 {
		return nil, fmt.Errorf("config: %w: [drives] paths is empty", hfcerr.ErrConfigInconsistent)
	}

	threshSec := f.Section("thresholds")
	minTemp, err := threshSec.Key("min_temp").Int()
	if err != nil {
		return nil, fmt.Errorf("config: [thresholds] min_temp: %w", err)
	}
	maxTemp, err := threshSec.Key("max_temp").Int()
	if err != nil {
		return nil, fmt.Errorf("config: [thresholds] max_temp: %w", err)
	}
	cfg.Thresholds = units.Thresholds{Min: units.Temperature(minTemp), Max: units.Temperature(maxTemp)}
	if !cfg.Thresholds.Valid() {
		return nil, fmt.Errorf("config: %w: thresholds min_temp=%d max_temp=%d", hfcerr.ErrConfigInconsistent, minTemp, maxTemp)
	}

	for _, sec := range f.Sections() {
		name := sec.Name()
		if !strings.HasPrefix(name, "fan.") {
			continue
		}
		fanName := strings.TrimPrefix(name, "fan.")
		fs := FanSection{
			Name:       fanName,
			Path:       sec.Key("path").String(),
			Command:    sec.Key("command").String(),
			MinDutyPct: sec.Key("min_duty_pct").MustFloat64(0),
		}

		if fs.Path == "" && fs.Command == "" {
			return nil, fmt.Errorf("config: %w: [%s] needs path or command", hfcerr.ErrConfigInconsistent, name)
		}
		if fs.Path != "" && fs.Command != "" {
			return nil, fmt.Errorf("config: %w: [%s] has both path and command", hfcerr.ErrConfigInconsistent, name)
		}

		if fs.Path != "" {
			if sec.HasKey("start_pwm") && sec.HasKey("stop_pwm") {
				start, err := sec.Key("start_pwm").Int()
				if err != nil {
					return nil, fmt.Errorf("config: [%s] start_pwm: %w", name, err)
				}
				stop, err := sec.Key("stop_pwm").Int()
				if err != nil {
					return nil, fmt.Errorf("config: [%s] stop_pwm: %w", name, err)
				}
				fs.StartPWM, fs.StopPWM = byte(start), byte(stop)
				fs.StopKnown = true
			} else {
				fs.Characterize = true
			}
		}

		cfg.Fans = append(cfg.Fans, fs)
	}
	if len(cfg.Fans) == 0 {
		return nil, fmt.Errorf("config: %w: no [fan.*] sections", hfcerr.ErrConfigInconsistent)
	}

	loopSec := f.Section("loop")
	cfg.IntervalSeconds = loopSec.Key("interval_seconds").MustInt(defaultIntervalSeconds)
	cfg.SpindownIdleSeconds = loopSec.Key("spindown_idle_seconds").MustInt(0)
	cfg.ZeroFloor = loopSec.Key("zero_floor").MustBool(false)
	cfg.MaxConsecutiveFails = loopSec.Key("max_consecutive_failures").MustInt(defaultMaxConsecutiveFails)

	cfg.SensorPaths = splitList(f.Section("sensors").Key("paths").String())

	cfg.LogLevel = f.Section("log").Key("level").MustString(defaultLogLevel)

	return cfg, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
