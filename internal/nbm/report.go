package nbm

import (
	"fmt"
	"strings"
	"time"
)

const reportWidth = 72

// renderReport formats the human-readable block shared by both resource kinds.
// index < 0 omits the "[i]" prefix; now anchors the last-backup delta. extra rows are inserted before the footer.
func renderReport(r Resource, index int, now time.Time, extra [][2]string) string {
	var b strings.Builder

	width := reportWidth
	if index >= 0 {
		prefix := fmt.Sprintf("[%d] ", index)
		b.WriteString(prefix)
		width -= len(prefix)
	}
	b.WriteString(center(" "+truncate(r.Name(), 32)+" ", width, '-'))
	b.WriteByte('\n')

	size := "unavailable"
	if n, err := r.Size(); err == nil {
		size = FormatSize(n)
	}

	last := "never"
	if t, ok := r.LastBackup(); ok {
		last = fmt.Sprintf("%s (%s)", t.Format("Jan 02, 2006 15:04:05"), FormatDelta(t, now))
	}

	rows := [][2]string{
		{"ORIGIN", r.Origin()},
		{"DESTINY", r.Destiny()},
		{"TYPE", strings.ToUpper(string(r.Kind()))},
		{"SIZE", size},
		{"LAST", last},
	}
	rows = append(rows, extra...)
	for _, row := range rows {
		fmt.Fprintf(&b, "%-8s: %s\n", row[0], row[1])
	}
	b.WriteString(strings.Repeat("-", reportWidth))

	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func center(s string, width int, fill byte) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	left := (width - n) / 2
	right := width - n - left
	return strings.Repeat(string(fill), left) + s + strings.Repeat(string(fill), right)
}
