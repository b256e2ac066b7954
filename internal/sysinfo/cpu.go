package sysinfo

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"aurora-kvm-top/internal/model"
)

const statPath = "/proc/stat"

// CPUSample reads the aggregate "cpu " line from the kernel stat file.
func CPUSample() (model.CpuSample, error) {
	f, err := os.Open(statPath)
	if err != nil {
		return model.CpuSample{}, fmt.Errorf("open %s: %w", statPath, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		fields := strings.Fields(line)[1:]
		if len(fields) < 8 {
			return model.CpuSample{}, fmt.Errorf("unexpected cpu line in %s: %q", statPath, line)
		}
		vals := make([]uint64, len(fields))
		for i, s := range fields {
			v, convErr := strconv.ParseUint(s, 10, 64)
			if convErr != nil {
				return model.CpuSample{}, fmt.Errorf("parse cpu field %q: %w", s, convErr)
			}
			vals[i] = v
		}
		// user nice system idle iowait irq softirq steal [guest guest_nice]
		user, nice, sys, idle, iowait, irq, softirq, steal := vals[0], vals[1], vals[2], vals[3], vals[4], vals[5], vals[6], vals[7]
		return model.CpuSample{
			IdleClocks:  idle + iowait,
			TotalClocks: user + nice + sys + idle + iowait + irq + softirq + steal,
		}, nil
	}
	if err := sc.Err(); err != nil {
		return model.CpuSample{}, fmt.Errorf("scan %s: %w", statPath, err)
	}
	return model.CpuSample{}, fmt.Errorf("no aggregate cpu line found in %s", statPath)
}

// CPUUsagePercent computes the percent of non-idle time between two
// samples. If prev is nil (no previous sample), the percent is 0 since
// there is nothing to compare against (spec.md §4.2).
func CPUUsagePercent(prev *model.CpuSample, cur model.CpuSample) float64 {
	if prev == nil {
		return 0
	}
	deltaTotal := int64(cur.TotalClocks) - int64(prev.TotalClocks)
	if deltaTotal <= 0 {
		return 0
	}
	deltaIdle := int64(cur.IdleClocks) - int64(prev.IdleClocks)
	if deltaIdle < 0 {
		deltaIdle = 0
	}
	pct := 100 * (1 - float64(deltaIdle)/float64(deltaTotal))
	return math.Round(pct*100) / 100
}
