package model

// MemStat is a domain's VirtIO balloon memory record, as reported by the
// hypervisor's stats subcommand. Actual is always set for a running VM;
// RSS and LastUpdatedSec are set only when the stats carry both
// balloon.rss and balloon.last-update, and are zero otherwise. The four
// guest-reported fields (Unused,
// Available, Usable, DiskCaches) are either all present (balloon driver
// loaded in the guest) or all absent (balloon unsupported/not negotiated).
type MemStat struct {
	Actual         uint64
	RSS            uint64
	LastUpdatedSec int64

	Unused      uint64
	Available   uint64
	Usable      uint64
	DiskCaches  uint64
	GuestStatOK bool
}

// GuestMem derives the guest-visible pressure view from the balloon's
// Available/Usable counters: Total is what the guest believes it has,
// Available is what the guest estimates it can still hand out without
// reclaiming caches or swapping. Callers must check GuestStatOK first.
func (m MemStat) GuestMem() MemoryStat {
	return MemoryStat{Total: m.Available, Available: m.Usable}
}
