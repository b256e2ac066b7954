package model

import "math"

// DiskStat is one block device attached to a running domain, as reported
// under the hypervisor stats subcommand's block.<i>.* keys.
type DiskStat struct {
	Name       string
	Allocation uint64
	Capacity   uint64
	Physical   uint64
	Path       string
	HasPath    bool
}

// OverheadPercent is round((physical/allocation - 1) * 100), clamped to
// [-100, 999]. Allocation of zero reports zero overhead rather than dividing
// by zero, since there is nothing to compare against.
func (d DiskStat) OverheadPercent() int {
	if d.Allocation == 0 {
		return 0
	}
	ratio := float64(d.Physical)/float64(d.Allocation) - 1
	pct := math.Round(ratio * 100)
	if pct < -100 {
		return -100
	}
	if pct > 999 {
		return 999
	}
	return int(pct)
}
