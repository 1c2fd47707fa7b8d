package probe

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hddfancontrol/hddfancontrold/pkg/drive"
	"github.com/hddfancontrol/hddfancontrold/pkg/hfcerr"
)

// orderedCandidates returns the backends to trial for device, in the fixed
// preference order from spec.md §4.5: cheapest in-kernel mechanism first,
// interface-appropriate SMART parsing next, hddtemp last since it's the
// only one that might wake a sleeping drive.
func orderedCandidates(iface drive.Interface) []Backend {
	candidates := []Backend{NewDrivetemp(), NewHdparmSct()}

	switch iface {
	case drive.InterfaceSAS:
		candidates = append(candidates, NewSmartctlScsi())
	case drive.InterfaceNVMe:
		candidates = append(candidates, NewSmartctlNvme())
	default:
		candidates = append(candidates, NewSmartctlAttr())
	}

	return append(candidates, NewHddtemp())
}

// Select trials orderedCandidates against device in order and commits to the
// first one that Supports it, exactly once at startup — spec.md §4.5 is
// explicit that the choice is not revisited on steady-state probe failure,
// only made again (by calling Select again) if the caller decides the
// selected backend has become permanently unusable.
func Select(ctx context.Context, device string, iface drive.Interface) (Backend, error) {
	for _, c := range orderedCandidates(iface) {
		if c.Supports(ctx, device) {
			log.Info().Str("subsys", "probe").Str("device", device).
				Str("backend", c.Name()).Bool("wakes_sleeping", c.WakesSleepingDrive()).
				Msg("selected temperature probe backend")
			return c, nil
		}
	}
	return nil, fmt.Errorf("probe: %w: no backend supports device %s", hfcerr.ErrBackendUnavailable, device)
}
