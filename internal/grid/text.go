package grid

import (
	"fmt"
	"strings"
)

var weekdayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Text renders the grid for a terminal: a 7-column calendar where '*'
// marks a day with events and '+' one with hidden overflow, followed by
// one line per busy day.
func Text(g Grid) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d-%02d\n", g.Year, g.Month)
	for _, name := range weekdayNames {
		fmt.Fprintf(&b, "%4s", name)
	}
	b.WriteByte('\n')

	col := 0
	for ; col < g.Leading; col++ {
		b.WriteString("    ")
	}
	for _, c := range g.Cells {
		mark := ' '
		switch {
		case c.Overflow:
			mark = '+'
		case c.Total > 0:
			mark = '*'
		}
		fmt.Fprintf(&b, "%3d%c", c.Day, mark)
		col++
		if col%7 == 0 {
			b.WriteByte('\n')
		}
	}
	if col%7 != 0 {
		b.WriteByte('\n')
	}

	for _, c := range g.Cells {
		if c.Total == 0 {
			continue
		}
		b.WriteString(string(c.Key))
		if c.Icon != "" {
			fmt.Fprintf(&b, " [%s]", c.Icon)
		}
		for i, ev := range c.Events {
			if i == 0 {
				b.WriteString(" ")
			} else {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s %s", clockHM(ev.Time), ev.Title)
		}
		if c.Hidden > 0 {
			fmt.Fprintf(&b, " (+%d more)", c.Hidden)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func clockHM(clock string) string {
	if len(clock) >= 5 {
		return clock[:5]
	}
	return clock
}
