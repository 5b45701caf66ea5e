package camera

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FullBattery is reported when no battery can be read.
const FullBattery = 100

// BatteryReader reads the host battery level from sysfs.
type BatteryReader struct {
	// Root defaults to /sys/class/power_supply.
	Root string
}

// Level returns the first battery capacity found, clamped to 0..100, or
// FullBattery when there is none (desktops, macOS, containers).
func (b BatteryReader) Level() int {
	root := b.Root
	if root == "" {
		root = "/sys/class/power_supply"
	}
	matches, err := filepath.Glob(filepath.Join(root, "*", "capacity"))
	if err != nil {
		return FullBattery
	}
	for _, m := range matches {
		raw, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			continue
		}
		return min(max(n, 0), 100)
	}
	return FullBattery
}
