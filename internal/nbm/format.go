package nbm

import (
	"time"

	"github.com/dustin/go-humanize"
)

// FormatSize renders a byte count with binary units, e.g. "1.5 KiB".
func FormatSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}

// FormatDelta renders how long ago t was relative to now, e.g. "3 hours ago".
func FormatDelta(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}
