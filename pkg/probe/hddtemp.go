package probe

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hddfancontrol/hddfancontrold/pkg/hfcerr"
	"github.com/hddfancontrol/hddfancontrold/pkg/subproc"
	"github.com/hddfancontrol/hddfancontrold/pkg/units"
)

// Hddtemp invokes the hddtemp daemon's CLI mode. Broadly compatible across
// drive types, but whether it wakes a sleeping drive depends on the drive
// and hddtemp's own probing method — since that can't be determined
// statically, it's conservatively modeled as wake-capable (see DESIGN.md).
type Hddtemp struct{}

func NewHddtemp() *Hddtemp { return &Hddtemp{} }

func (h *Hddtemp) Name() string            { return "hddtemp" }
func (h *Hddtemp) WakesSleepingDrive() bool { return true }

func (h *Hddtemp) Supports(ctx context.Context, device string) bool {
	_, err := h.Probe(ctx, device)
	return err == nil || hfcerr.IsSoft(err)
}

// Probe runs `hddtemp -u C -n <device>`, which prints a bare integer
// Celsius reading on stdout, or "drive is sleeping" on stderr with exit 0 —
// the one documented soft-failure case for this backend, per spec.md §6.
func (h *Hddtemp) Probe(ctx context.Context, device string) (units.Temperature, error) {
	res, err := subproc.Run(ctx, nil, "hddtemp", "-u", "C", "-n", device)
	if err != nil {
		return 0, fmt.Errorf("hddtemp: %w", err)
	}

	stderr := string(res.Stderr)
	if strings.Contains(stderr, "drive is sleeping") {
		return 0, fmt.Errorf("hddtemp: %w", hfcerr.ErrDriveAsleep)
	}

	out := strings.TrimSpace(string(res.Stdout))
	celsius, parseErr := strconv.Atoi(out)
	if parseErr != nil {
		return 0, fmt.Errorf("hddtemp: %w: stdout=%q", hfcerr.ErrParseOutput, out)
	}

	return checkPlausible("hddtemp", units.Temperature(celsius))
}
