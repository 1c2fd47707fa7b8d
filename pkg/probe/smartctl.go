package probe

import (
	"context"
	"fmt"
	"regexp"

	"github.com/hddfancontrol/hddfancontrold/pkg/hfcerr"
	"github.com/hddfancontrol/hddfancontrold/pkg/subproc"
	"github.com/hddfancontrol/hddfancontrold/pkg/units"
)

// smartctl's exit code is a bitmask (SMART/self-test status bits), not a
// simple success/failure signal — bits unrelated to "can't read attributes"
// are tolerated as soft, matching the informational-stderr handling spec.md
// describes for this family of helpers. Bits 0-2 (command line did not
// parse, device open failed, SMART command failed) stay hard failures.
var smartctlSoft subproc.SoftMatcher = func(stderr []byte, exitCode int) bool {
	return exitCode&0x07 == 0
}

// SmartctlAttr reads ATA SMART attribute 194 (Temperature_Celsius),
// falling back to 190 (Airflow_Temperature) when 194 is absent. It usually
// does not wake a drive that supports the attribute at all (the drive has
// to be awake to answer SMART queries in the first place on many models,
// but querying itself isn't what wakes it).
type SmartctlAttr struct{}

func NewSmartctlAttr() *SmartctlAttr { return &SmartctlAttr{} }

func (s *SmartctlAttr) Name() string            { return "smartctl_attr" }
func (s *SmartctlAttr) WakesSleepingDrive() bool { return false }

// attr194Re and attr190Re match smartctl -A's fixed nine-column attribute
// table (ID# ATTRIBUTE_NAME FLAG VALUE WORST THRESH TYPE UPDATED
// WHEN_FAILED RAW_VALUE) by skipping exactly the seven columns between the
// attribute name and RAW_VALUE, rather than taking the first number on the
// line — the VALUE column is itself numeric and would otherwise match first.
var (
	attr194Re = regexp.MustCompile(`(?m)^194\s+Temperature_Celsius\s+(?:\S+\s+){7}(\d+)`)
	attr190Re = regexp.MustCompile(`(?m)^190\s+Airflow_Temperature_Cel\s+(?:\S+\s+){7}(\d+)`)
)

func (s *SmartctlAttr) Supports(ctx context.Context, device string) bool {
	_, err := s.Probe(ctx, device)
	return err == nil
}

func (s *SmartctlAttr) Probe(ctx context.Context, device string) (units.Temperature, error) {
	res, err := subproc.Run(ctx, smartctlSoft, "smartctl", "-A", device)
	if err != nil {
		return 0, fmt.Errorf("smartctl_attr: %w", err)
	}

	if m := attr194Re.FindSubmatch(res.Stdout); m != nil {
		return parseSmartctlInt("smartctl_attr", string(m[1]))
	}
	if m := attr190Re.FindSubmatch(res.Stdout); m != nil {
		return parseSmartctlInt("smartctl_attr", string(m[1]))
	}
	return 0, fmt.Errorf("smartctl_attr: %w: no attribute 194 or 190 in output", hfcerr.ErrParseOutput)
}

// SmartctlScsi reads the SCSI/SAS "Current Drive Temperature:" block.
type SmartctlScsi struct{}

func NewSmartctlScsi() *SmartctlScsi { return &SmartctlScsi{} }

func (s *SmartctlScsi) Name() string            { return "smartctl_scsi" }
func (s *SmartctlScsi) WakesSleepingDrive() bool { return false }

var scsiTempRe = regexp.MustCompile(`Current Drive Temperature:\s*(\d+)\s*C`)

func (s *SmartctlScsi) Supports(ctx context.Context, device string) bool {
	_, err := s.Probe(ctx, device)
	return err == nil
}

func (s *SmartctlScsi) Probe(ctx context.Context, device string) (units.Temperature, error) {
	res, err := subproc.Run(ctx, smartctlSoft, "smartctl", "-A", device)
	if err != nil {
		return 0, fmt.Errorf("smartctl_scsi: %w", err)
	}

	m := scsiTempRe.FindSubmatch(res.Stdout)
	if m == nil {
		return 0, fmt.Errorf("smartctl_scsi: %w: no \"Current Drive Temperature:\" line", hfcerr.ErrParseOutput)
	}
	return parseSmartctlInt("smartctl_scsi", string(m[1]))
}

// SmartctlNvme reads NVMe's plain "Temperature: NN Celsius" line. NVMe has
// no sleep state in the sense spec.md models for ATA/SAS drives, so waking
// a sleeping drive doesn't apply — this backend reports false, the
// innocuous value, since its Probe can always run.
type SmartctlNvme struct{}

func NewSmartctlNvme() *SmartctlNvme { return &SmartctlNvme{} }

func (s *SmartctlNvme) Name() string            { return "smartctl_nvme" }
func (s *SmartctlNvme) WakesSleepingDrive() bool { return false }

// nvmeTempRe matches smartctl's NVMe log output directly in Celsius. Unlike
// the raw NVMe SMART log page (which reports Kelvin and needs a -273
// conversion, as seen in corpus NVMe parsers), smartctl has already
// converted it — do not apply that conversion again here.
var nvmeTempRe = regexp.MustCompile(`Temperature:\s*(\d+)\s*Celsius`)

func (s *SmartctlNvme) Supports(ctx context.Context, device string) bool {
	_, err := s.Probe(ctx, device)
	return err == nil
}

func (s *SmartctlNvme) Probe(ctx context.Context, device string) (units.Temperature, error) {
	res, err := subproc.Run(ctx, smartctlSoft, "smartctl", "-A", device)
	if err != nil {
		return 0, fmt.Errorf("smartctl_nvme: %w", err)
	}

	m := nvmeTempRe.FindSubmatch(res.Stdout)
	if m == nil {
		return 0, fmt.Errorf("smartctl_nvme: %w: no \"Temperature: N Celsius\" line", hfcerr.ErrParseOutput)
	}
	return parseSmartctlInt("smartctl_nvme", string(m[1]))
}

func parseSmartctlInt(backend, s string) (units.Temperature, error) {
	var celsius int
	if _, err := fmt.Sscanf(s, "%d", &celsius); err != nil {
		return 0, fmt.Errorf("%s: %w: %v", backend, hfcerr.ErrParseOutput, err)
	}
	return checkPlausible(backend, units.Temperature(celsius))
}
