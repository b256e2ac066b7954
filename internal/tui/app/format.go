package app

import "fmt"

// formatBytes renders a byte count as a short "N.NG"/"N.NM" value for
// status lines and window content, the same convention the ballooning
// controller's own status text uses.
func formatBytes(b uint64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)
	switch {
	case b >= gib:
		return fmt.Sprintf("%.1fG", float64(b)/gib)
	case b >= mib:
		return fmt.Sprintf("%.1fM", float64(b)/mib)
	case b >= kib:
		return fmt.Sprintf("%.1fK", float64(b)/kib)
	default:
		return fmt.Sprintf("%dB", b)
	}
}
