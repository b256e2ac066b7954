package sysinfo

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"aurora-kvm-top/internal/model"
)

// Qcow2Ref names one disk image path and its on-host physical footprint,
// as read from a running VM's DiskStat.
type Qcow2Ref struct {
	Path         string
	PhysicalByte uint64
}

// DiskUsage resolves each path to its backing block device via a
// POSIX-portable `df -P` invocation, then aggregates physical bytes and
// paths per device. Duplicate device rows are merged into one DiskUsage.
// Empty input returns an empty mapping without touching the filesystem.
func DiskUsage(ctx context.Context, qcow2 []Qcow2Ref) (map[string]model.DiskUsage, error) {
	out := make(map[string]model.DiskUsage)
	if len(qcow2) == 0 {
		return out, nil
	}

	for _, ref := range qcow2 {
		device, usage, err := dfLookup(ctx, ref.Path)
		if err != nil {
			return nil, err
		}
		existing, ok := out[device]
		if !ok {
			out[device] = model.DiskUsage{
				Usage:      usage,
				VMBytes:    ref.PhysicalByte,
				Qcow2Paths: []string{ref.Path},
			}
			continue
		}
		existing.VMBytes += ref.PhysicalByte
		existing.Qcow2Paths = append(existing.Qcow2Paths, ref.Path)
		out[device] = existing
	}
	return out, nil
}

// dfLookup shells out to `df -P <path>` and parses the POSIX-format
// two-line output into a device name and a host filesystem usage stat.
func dfLookup(ctx context.Context, path string) (string, model.MemoryStat, error) {
	cmd := exec.CommandContext(ctx, "df", "-P", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", model.MemoryStat{}, fmt.Errorf("df -P %s: %w: %s", path, err, strings.TrimSpace(string(out)))
	}

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) < 2 {
		return "", model.MemoryStat{}, fmt.Errorf("df -P %s: unexpected output: %q", path, string(out))
	}
	fields := strings.Fields(lines[1])
	if len(fields) < 4 {
		return "", model.MemoryStat{}, fmt.Errorf("df -P %s: unexpected fields: %q", path, lines[1])
	}
	device := fields[0]
	totalKiB, errT := strconv.ParseUint(fields[1], 10, 64)
	availKiB, errA := strconv.ParseUint(fields[3], 10, 64)
	if errT != nil || errA != nil {
		return "", model.MemoryStat{}, fmt.Errorf("df -P %s: non-numeric usage fields: %q", path, lines[1])
	}
	usage := model.MemoryStat{Total: totalKiB * 1024, Available: availKiB * 1024}
	return device, usage, nil
}
