package probe

import (
	"context"
	"fmt"
	"regexp"

	"github.com/hddfancontrol/hddfancontrold/pkg/hfcerr"
	"github.com/hddfancontrol/hddfancontrold/pkg/subproc"
	"github.com/hddfancontrol/hddfancontrold/pkg/units"
)

var hdparmTempRe = regexp.MustCompile(`drive temperature is (-?\d+) degrees Celsius`)

// HdparmSct reads ATA SCT temperature status via hdparm. It does not wake a
// sleeping drive for drives that support SCT status (the common case); its
// non-zero-exit handling is strict (hard failure) but informational stderr
// lines alongside a zero exit are tolerated without special-casing, since
// subproc.Run only treats a non-zero exit as an error in the first place.
type HdparmSct struct{}

func NewHdparmSct() *HdparmSct { return &HdparmSct{} }

func (h *HdparmSct) Name() string            { return "hdparm_sct" }
func (h *HdparmSct) WakesSleepingDrive() bool { return false }

func (h *HdparmSct) Supports(ctx context.Context, device string) bool {
	_, err := h.Probe(ctx, device)
	return err == nil
}

// Probe runs `hdparm --drive-temperature <device>`, parsing the pinned
// "drive temperature is NN degrees Celsius" line from stdout.
func (h *HdparmSct) Probe(ctx context.Context, device string) (units.Temperature, error) {
	res, err := subproc.Run(ctx, nil, "hdparm", "--drive-temperature", device)
	if err != nil {
		return 0, fmt.Errorf("hdparm_sct: %w", err)
	}

	m := hdparmTempRe.FindSubmatch(res.Stdout)
	if m == nil {
		return 0, fmt.Errorf("hdparm_sct: %w: stdout=%q", hfcerr.ErrParseOutput, res.Stdout)
	}

	var celsius int
	if _, scanErr := fmt.Sscanf(string(m[1]), "%d", &celsius); scanErr != nil {
		return 0, fmt.Errorf("hdparm_sct: %w: %v", hfcerr.ErrParseOutput, scanErr)
	}

	return checkPlausible("hdparm_sct", units.Temperature(celsius))
}
