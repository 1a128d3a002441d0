package leds

import (
	"log/slog"
	"os"
	"path/filepath"
)

// SysfsPanel drives Linux LEDs through the kernel's leds class: each
// mapped role writes "1" or "0" to <dir>/<name>/brightness. Roles with
// no mapped name are silently skipped, so a host with only some of the
// three LEDs still works.
type SysfsPanel struct {
	dir   string
	names map[LED]string
}

// NewSysfsPanel creates a panel rooted at dir (normally
// /sys/class/leds). names maps roles to LED device names; missing or
// empty entries leave that role unmapped.
func NewSysfsPanel(dir string, names map[LED]string) *SysfsPanel {
	return &SysfsPanel{dir: dir, names: names}
}

// Set writes the brightness file for the mapped LED. Write failures are
// logged and dropped; an indicator is not worth disturbing the core for.
func (p *SysfsPanel) Set(l LED, on bool) {
	name := p.names[l]
	if name == "" {
		return
	}

	value := []byte("0")
	if on {
		value = []byte("1")
	}

	path := filepath.Join(p.dir, name, "brightness")
	if err := os.WriteFile(path, value, 0644); err != nil {
		slog.Warn("[leds] brightness write failed", "led", l.String(), "path", path, "error", err)
	}
}
