package ui

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/javiermolinar/lifeplan/internal/summary"
	"github.com/javiermolinar/lifeplan/internal/task"
)

var boxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Padding(0, 1)

// PrintOpts configures task printing behavior.
type PrintOpts struct {
	Location      *time.Location
	DefaultEffort time.Duration // effort shown for tasks without one
	Verbose       bool          // show full titles and ids
	MaxDescWidth  int           // 0 = auto
}

// CalcMaxDescWidth calculates the maximum title width based on options.
func (o PrintOpts) CalcMaxDescWidth(defaultWidth int) int {
	if o.MaxDescWidth > 0 {
		return o.MaxDescWidth
	}
	if !o.Verbose {
		return defaultWidth
	}
	// "  ○  HH:MM-HH:MM  [spiritual]  " plus the duration column
	available := termWidth() - 40
	if available > defaultWidth {
		return available
	}
	return defaultWidth
}

func (o PrintOpts) location() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.Local
}

// PrintTaskRow prints a single task row with consistent formatting.
func PrintTaskRow(w io.Writer, t *task.Task, opts PrintOpts, maxDescWidth int) {
	span := "     inbox     "
	if start, end, ok := t.Slot(); ok {
		span = FormatSpan(start, end, opts.location())
	}
	def := opts.DefaultEffort
	if def <= 0 {
		def = task.DefaultEffort
	}
	effort := t.Effort(def)
	fmt.Fprintf(w, "  %s  %s  %s  %-*s  %s",
		statusSymbol(t.Status),
		span,
		formatDomain(t.Domain, fmt.Sprintf("[%-9s]", t.Domain)),
		maxDescWidth, truncate(t.Title, maxDescWidth),
		formatMuted(FormatDuration(int(effort/time.Minute))),
	)
	if opts.Verbose {
		fmt.Fprintf(w, "  %s", formatMuted(t.ID))
	}
	fmt.Fprintln(w)
}

// PrintEventRow prints a calendar event the way PrintTaskRow prints a task.
func PrintEventRow(w io.Writer, ev *task.CalendarEvent, opts PrintOpts, maxDescWidth int) {
	marker := "■"
	if ev.TaskID == "" {
		marker = "□"
	}
	fmt.Fprintf(w, "  %s  %s  %s  %-*s  %s\n",
		marker,
		FormatSpan(ev.Start, ev.End, opts.location()),
		formatDomain(ev.Domain, fmt.Sprintf("[%-9s]", ev.Domain)),
		maxDescWidth, truncate(ev.Title, maxDescWidth),
		formatMuted(string(ev.Source)),
	)
}

// PrintDaySummary prints the busy and free time of a day and how it splits across domains.
func PrintDaySummary(w io.Writer, s *summary.DaySummary, loc *time.Location) {
	total := s.BusyMinutes + s.FreeMinutes
	fmt.Fprintf(w, "Busy: %s | Free: %s | Events: %d\n",
		formatStats(FormatDuration(s.BusyMinutes)),
		FormatDuration(s.FreeMinutes),
		len(s.Events))
	fmt.Fprintf(w, "Load: %s\n", UsageBar(s.BusyMinutes, total, 20))

	if len(s.DomainMinutes) > 0 {
		domains := make([]task.Domain, 0, len(s.DomainMinutes))
		for d := range s.DomainMinutes {
			domains = append(domains, d)
		}
		slices.Sort(domains)
		parts := make([]string, 0, len(domains))
		for _, d := range domains {
			parts = append(parts, formatDomain(d, fmt.Sprintf("%s %s", d, FormatDuration(s.DomainMinutes[d]))))
		}
		fmt.Fprintf(w, "Domains: %s\n", strings.Join(parts, "  "))
	}

	if len(s.Free) > 0 {
		gaps := make([]string, 0, len(s.Free))
		for _, iv := range s.Free {
			gaps = append(gaps, FormatSpan(iv.Start, iv.End, loc))
		}
		fmt.Fprintf(w, "Free: %s\n", formatMuted(strings.Join(gaps, ", ")))
	}
}

// UsageBar creates an ASCII progress bar showing how much of the day is booked.
func UsageBar(busyMinutes, totalMinutes, width int) string {
	if totalMinutes <= 0 {
		return "[" + strings.Repeat("░", width) + "] (0% booked)"
	}
	if busyMinutes > totalMinutes {
		busyMinutes = totalMinutes
	}

	pct := (busyMinutes * 100) / totalMinutes
	filled := (busyMinutes * width) / totalMinutes

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %s", formatStats(bar), formatStats(fmt.Sprintf("(%d%% booked)", pct)))
}

// renderBox draws lines inside a rounded border.
func renderBox(lines ...string) string {
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// FormatSpan formats [start, end) as "HH:MM-HH:MM" in loc.
func FormatSpan(start, end time.Time, loc *time.Location) string {
	return start.In(loc).Format("15:04") + "-" + end.In(loc).Format("15:04")
}

// FormatDuration formats minutes as a human-readable duration.
func FormatDuration(minutes int) string {
	if minutes == 0 {
		return "0m"
	}
	hours := minutes / 60
	mins := minutes % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	if mins == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh%dm", hours, mins)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 3 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

func statusSymbol(s task.Status) string {
	switch s {
	case task.StatusInbox:
		return "·"
	case task.StatusScheduled:
		return "○"
	case task.StatusDone:
		return "✓"
	case task.StatusSkipped:
		return "→"
	case task.StatusCanceled:
		return "✗"
	default:
		return "?"
	}
}
