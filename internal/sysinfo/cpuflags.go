package sysinfo

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

const cpuinfoPath = "/proc/cpuinfo"

// CPUFlags reads the CPU info file and returns the union of "flags" (or,
// on some architectures, "Features") entries across every core reported.
func CPUFlags() (map[string]struct{}, error) {
	f, err := os.Open(cpuinfoPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cpuinfoPath, err)
	}
	defer f.Close()

	flags := make(map[string]struct{})
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key != "flags" && key != "Features" {
			continue
		}
		for _, flag := range strings.Fields(val) {
			flags[flag] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", cpuinfoPath, err)
	}
	return flags, nil
}
