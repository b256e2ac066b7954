package sysinfo

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"aurora-kvm-top/internal/model"
)

const meminfoPath = "/proc/meminfo"

// MemoryStats reads the kernel memory counters file and returns the host's
// RAM and swap usage. Required labels: MemTotal, MemAvailable, SwapTotal,
// SwapFree (spec.md §6); values are reported in KiB and converted to bytes.
func MemoryStats() (ram model.MemoryStat, swap model.MemoryStat, err error) {
	f, err := os.Open(meminfoPath)
	if err != nil {
		return model.MemoryStat{}, model.MemoryStat{}, fmt.Errorf("open %s: %w", meminfoPath, err)
	}
	defer f.Close()

	vals := make(map[string]uint64, 8)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		key := strings.TrimSuffix(parts[0], ":")
		n, convErr := strconv.ParseUint(parts[1], 10, 64)
		if convErr != nil {
			continue
		}
		vals[key] = n * 1024
	}
	if err := sc.Err(); err != nil {
		return model.MemoryStat{}, model.MemoryStat{}, fmt.Errorf("scan %s: %w", meminfoPath, err)
	}

	total, okTotal := vals["MemTotal"]
	avail, okAvail := vals["MemAvailable"]
	swapTotal, okSwapTotal := vals["SwapTotal"]
	swapFree, okSwapFree := vals["SwapFree"]
	if !okTotal || !okAvail || !okSwapTotal || !okSwapFree {
		return model.MemoryStat{}, model.MemoryStat{}, fmt.Errorf("%s missing required fields", meminfoPath)
	}

	ram = model.MemoryStat{Total: total, Available: avail}
	swap = model.MemoryStat{Total: swapTotal, Available: swapFree}
	return ram, swap, nil
}
