package hypervisor

import (
	"bufio"
	"strconv"
	"strings"

	"aurora-kvm-top/internal/model"
)

// parseDomStats parses the hypervisor's block-structured domain-statistics
// output (spec.md §6) into a name -> DomainData mapping. sampledAtMs is the
// caller-supplied "milliseconds since epoch" captured at call time, applied
// uniformly to every domain in this batch.
func parseDomStats(text string, sampledAtMs int64) (map[string]model.DomainData, error) {
	out := make(map[string]model.DomainData)

	for _, block := range splitDomainBlocks(text) {
		name, fields := parseBlockFields(block)
		if name == "" {
			continue
		}
		data, err := fieldsToDomainData(name, fields, sampledAtMs)
		if err != nil {
			return nil, err
		}
		out[name] = data
	}
	return out, nil
}

// splitDomainBlocks groups lines into one slice per "Domain: <name>" header,
// separated by blank lines as spec.md §6 describes.
func splitDomainBlocks(text string) [][]string {
	var blocks [][]string
	var cur []string
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}

// parseBlockFields extracts the domain name from the "Domain: <name>"
// header and the flat key=value map of the remaining indented lines.
// Any line that doesn't parse as key=value is silently ignored, as spec.md
// §6 requires.
func parseBlockFields(lines []string) (string, map[string]string) {
	name := ""
	fields := make(map[string]string)
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "Domain:"); ok {
			name = strings.TrimSpace(rest)
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return name, fields
}

func fieldsToDomainData(name string, f map[string]string, sampledAtMs int64) (model.DomainData, error) {
	state, err := requireInt(f, "state.state", name)
	if err != nil {
		return model.DomainData{}, err
	}
	domState := domainStateFromCode(state)

	info := model.DomainInfo{Name: name}
	var memStat *model.MemStat
	var disks []model.DiskStat

	if domState == model.DomainStateRunning {
		vcpu, err := requireUint(f, "vcpu.maximum", name)
		if err != nil {
			return model.DomainData{}, err
		}
		info.CPUs = uint(vcpu)

		cpuTimeNs, err := requireInt(f, "cpu.time", name)
		if err != nil {
			return model.DomainData{}, err
		}

		balloonCurrentKiB, err := requireUint(f, "balloon.current", name)
		if err != nil {
			return model.DomainData{}, err
		}
		balloonMaxKiB, err := requireUint(f, "balloon.maximum", name)
		if err != nil {
			return model.DomainData{}, err
		}
		info.MaxMemory = balloonMaxKiB * 1024

		m := model.MemStat{
			Actual: balloonCurrentKiB * 1024,
		}
		if rss, ok := optionalUint(f, "balloon.rss"); ok {
			if lu, ok2 := optionalInt(f, "balloon.last-update"); ok2 {
				m.RSS = rss * 1024
				m.LastUpdatedSec = lu
			}
		}
		if unused, ok1 := optionalUint(f, "balloon.unused"); ok1 {
			if avail, ok2 := optionalUint(f, "balloon.available"); ok2 {
				if usable, ok3 := optionalUint(f, "balloon.usable"); ok3 {
					if caches, ok4 := optionalUint(f, "balloon.disk_caches"); ok4 {
						m.Unused = unused * 1024
						m.Available = avail * 1024
						m.Usable = usable * 1024
						m.DiskCaches = caches * 1024
						m.GuestStatOK = true
					}
				}
			}
		}
		memStat = &m

		disks = parseDisks(f)

		data := model.DomainData{
			Info:        info,
			State:       domState,
			SampledAtMs: sampledAtMs,
			CPUTimeMs:   int64(cpuTimeNs) / 1_000_000,
			MemStat:     memStat,
			Disks:       disks,
		}
		return data, nil
	}

	return model.DomainData{
		Info:        info,
		State:       domState,
		SampledAtMs: sampledAtMs,
		Disks:       parseDisks(f),
	}, nil
}

func parseDisks(f map[string]string) []model.DiskStat {
	count, ok := optionalUint(f, "block.count")
	if !ok {
		return nil
	}
	disks := make([]model.DiskStat, 0, count)
	for i := uint64(0); i < count; i++ {
		prefix := "block." + strconv.FormatUint(i, 10) + "."
		name, okName := f[prefix+"name"]
		allocStr, okAlloc := f[prefix+"allocation"]
		capStr, okCap := f[prefix+"capacity"]
		physStr, okPhys := f[prefix+"physical"]
		if !okName || !okAlloc || !okCap || !okPhys {
			continue
		}
		alloc, errA := strconv.ParseUint(allocStr, 10, 64)
		capc, errC := strconv.ParseUint(capStr, 10, 64)
		phys, errP := strconv.ParseUint(physStr, 10, 64)
		if errA != nil || errC != nil || errP != nil {
			continue
		}
		d := model.DiskStat{
			Name:       strings.TrimSpace(name),
			Allocation: alloc,
			Capacity:   capc,
			Physical:   phys,
		}
		if path, ok := f[prefix+"path"]; ok {
			d.Path = path
			d.HasPath = true
		}
		disks = append(disks, d)
	}
	return disks
}

func domainStateFromCode(code int) model.DomainState {
	switch code {
	case 1:
		return model.DomainStateRunning
	case 3:
		return model.DomainStatePaused
	case 5:
		return model.DomainStateShutOff
	default:
		return model.DomainStateOther
	}
}

func requireInt(f map[string]string, key, domain string) (int, error) {
	v, ok := f[key]
	if !ok {
		return 0, newInputFormatError("domstats", "domain "+domain+" missing required field "+key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, newInputFormatError("domstats", "domain "+domain+" field "+key+" is not an integer: "+v)
	}
	return n, nil
}

func requireUint(f map[string]string, key, domain string) (uint64, error) {
	v, ok := f[key]
	if !ok {
		return 0, newInputFormatError("domstats", "domain "+domain+" missing required field "+key)
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, newInputFormatError("domstats", "domain "+domain+" field "+key+" is not an unsigned integer: "+v)
	}
	return n, nil
}

func optionalUint(f map[string]string, key string) (uint64, bool) {
	v, ok := f[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func optionalInt(f map[string]string, key string) (int64, bool) {
	v, ok := f[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseNodeInfo parses the hypervisor's node-info output (colon-separated
// key/value lines) into a HostCpuInfo.
func parseNodeInfo(text string) (model.HostCpuInfo, error) {
	fields := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}

	cpuModel, okModel := fields["CPU model"]
	sockets, okSockets := fields["CPU socket(s)"]
	cores, okCores := fields["Core(s) per socket"]
	threads, okThreads := fields["Thread(s) per core"]
	if !okSockets || !okCores || !okThreads {
		return model.HostCpuInfo{}, newInputFormatError("nodeinfo", "missing CPU topology fields")
	}
	s, err := strconv.ParseUint(sockets, 10, 64)
	if err != nil {
		return model.HostCpuInfo{}, newInputFormatError("nodeinfo", "CPU socket(s) is not an integer: "+sockets)
	}
	c, err := strconv.ParseUint(cores, 10, 64)
	if err != nil {
		return model.HostCpuInfo{}, newInputFormatError("nodeinfo", "Core(s) per socket is not an integer: "+cores)
	}
	t, err := strconv.ParseUint(threads, 10, 64)
	if err != nil {
		return model.HostCpuInfo{}, newInputFormatError("nodeinfo", "Thread(s) per core is not an integer: "+threads)
	}
	if !okModel {
		cpuModel = "unknown"
	}
	return model.HostCpuInfo{
		Model:          cpuModel,
		Sockets:        uint(s),
		CoresPerSocket: uint(c),
		ThreadsPerCore: uint(t),
	}, nil
}
