// Command hddfancontrold is the process wrapper around pkg/control: it
// parses the configuration file, wires sysfs/command fan actuators and
// probe backends for the configured drives, and runs the supervisory loop
// until a termination signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hddfancontrol/hddfancontrold/pkg/config"
	"github.com/hddfancontrol/hddfancontrold/pkg/control"
	"github.com/hddfancontrol/hddfancontrold/pkg/drive"
	"github.com/hddfancontrol/hddfancontrold/pkg/fan"
	"github.com/hddfancontrol/hddfancontrold/pkg/hook"
	"github.com/hddfancontrol/hddfancontrold/pkg/probe"
)

func main() {
	configPath := flag.String("config", "/etc/hddfancontrold.conf", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hddfancontrold: %v\n", err)
		os.Exit(1)
	}

	configureLogging(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownSignals := make(chan os.Signal, 1)
	signal.Notify(shutdownSignals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		sig := <-shutdownSignals
		log.Info().Str("subsys", "main").Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	reg := &hook.Registry{}
	defer reg.Run()
	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("subsys", "main").Interface("panic", p).Msg("recovered from panic, running cleanup before re-raising")
			reg.Run()
			panic(p)
		}
	}()

	fans, err := buildFans(ctx, reg, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hddfancontrold: %v\n", err)
		reg.Run()
		os.Exit(1)
	}

	driveUnits, err := buildDriveUnits(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hddfancontrold: %v\n", err)
		reg.Run()
		os.Exit(1)
	}

	loop := control.New(driveUnits, fans, cfg.SensorPaths, cfg.Thresholds,
		time.Duration(cfg.IntervalSeconds)*time.Second, cfg.ZeroFloor, cfg.MaxConsecutiveFails, cfg.SpindownIdleSeconds)

	log.Info().Str("subsys", "main").Int("drives", len(driveUnits)).Int("fans", len(fans)).Msg("hddfancontrold starting")

	if err := loop.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "hddfancontrold: %v\n", err)
		reg.Run()
		os.Exit(1)
	}

	log.Info().Str("subsys", "main").Msg("hddfancontrold stopped")
}

func configureLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

// buildFans constructs every configured fan actuator and, for PWM fans,
// registers its restore hook before any other startup step touches sysfs —
// the restore action must be the first artefact registered so cleanup runs
// even if a later fan or drive fails to initialize.
func buildFans(ctx context.Context, reg *hook.Registry, cfg *config.Config) ([]fan.Fan, error) {
	fans := make([]fan.Fan, 0, len(cfg.Fans))

	for _, fs := range cfg.Fans {
		if fs.IsCommand() {
			f, err := fan.NewCmdFan(fs.Name, fs.Command, fs.MinDutyPct)
			if err != nil {
				return nil, fmt.Errorf("fan %s: %w", fs.Name, err)
			}
			fans = append(fans, f)
			continue
		}

		f, err := fan.NewPwmFan(ctx, reg, fs.Name, fs.Path, fs.StartPWM, fs.StopPWM, fs.StopKnown, fs.MinDutyPct)
		if err != nil {
			return nil, fmt.Errorf("fan %s: %w", fs.Name, err)
		}

		if fs.Characterize {
			log.Info().Str("subsys", "main").Str("fan", fs.Name).Msg("no configured thresholds, characterising fan")
			start, stop, err := fan.Characterize(ctx, fs.Path, fan.SysfsRPMReader(rpmPathFor(fs.Path)))
			if err != nil {
				return nil, fmt.Errorf("fan %s: characterise: %w", fs.Name, err)
			}
			f.Characterize(start, stop)
		}
		fans = append(fans, f)
	}

	return fans, nil
}

// rpmPathFor derives the fanN_input sibling of a pwmN sysfs path by index
// matching, per spec.md §6's "RPM sense: fanN_input in the same hwmon
// directory, resolved by matching the PWM index".
func rpmPathFor(pwmPath string) string {
	dir, file := splitPath(pwmPath)
	idx := file[len("pwm"):]
	return dir + "/fan" + idx + "_input"
}

func splitPath(p string) (dir, file string) {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i], p[i+1:]
		}
	}
	return "", p
}

// buildDriveUnits resolves each configured drive's identity, selects its
// probe backend, and pairs both with the configured thresholds.
func buildDriveUnits(ctx context.Context, cfg *config.Config) ([]*control.DriveUnit, error) {
	units := make([]*control.DriveUnit, 0, len(cfg.DrivePaths))

	for _, path := range cfg.DrivePaths {
		d, err := drive.New(ctx, path, probe.ChainPowerState(probe.HdparmPowerState, probe.SmartctlPowerState))
		if err != nil {
			return nil, fmt.Errorf("drive %s: %w", path, err)
		}

		if cfg.SpindownIdleSeconds > 0 {
			d.EnableActivityTracking(cfg.SpindownIdleSeconds)
		}

		backend, err := probe.Select(ctx, path, d.Interface)
		if err != nil {
			return nil, fmt.Errorf("drive %s: %w", path, err)
		}

		units = append(units, &control.DriveUnit{
			Drive:      d,
			Backend:    backend,
			Thresholds: cfg.Thresholds,
		})
	}

	return units, nil
}
