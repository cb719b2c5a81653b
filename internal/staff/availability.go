package staff

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/internal/feedback"
)

const clockLayout = "15:04"

var weekdays = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Weekday names a DayOfWeek value (0 = Monday).
func Weekday(day int) string {
	if day < 0 || day >= len(weekdays) {
		return fmt.Sprintf("day %d", day)
	}
	return weekdays[day]
}

// ParseWeekday accepts a weekday name, a three-letter prefix or 0-6.
func ParseWeekday(s string) (int, error) {
	s = strings.TrimSpace(s)
	for i, name := range weekdays {
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) || s == fmt.Sprint(i) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("staff: unknown weekday %q", s)
}

// ParseWindow reads "mon 09:00-13:00" or "mon 09:00-13:00/20" (slot minutes).
func ParseWindow(s string) (api.AvailabilityWindow, error) {
	var w api.AvailabilityWindow
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return w, fmt.Errorf("staff: window %q: want \"<day> HH:MM-HH:MM[/minutes]\"", s)
	}
	day, err := ParseWeekday(fields[0])
	if err != nil {
		return w, err
	}
	span := fields[1]
	if i := strings.IndexByte(span, '/'); i >= 0 {
		if _, err := fmt.Sscanf(span[i+1:], "%d", &w.SlotMinutes); err != nil {
			return w, fmt.Errorf("staff: window %q: bad slot minutes", s)
		}
		span = span[:i]
	}
	start, end, ok := strings.Cut(span, "-")
	if !ok {
		return w, fmt.Errorf("staff: window %q: missing end time", s)
	}
	w.DayOfWeek = day
	w.StartTime = start
	w.EndTime = end
	return w, nil
}

// ValidateWindows checks each window's times and that windows on the same
// day do not overlap. Windows that only touch are allowed.
func ValidateWindows(windows []api.AvailabilityWindow) error {
	type span struct {
		start, end time.Time
		idx        int
	}
	byDay := make(map[int][]span)
	for i, w := range windows {
		if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
			return feedback.Invalid("day_of_week", fmt.Sprintf("Window %d: day must be between 0 (Monday) and 6 (Sunday).", i+1))
		}
		start, err := time.Parse(clockLayout, w.StartTime)
		if err != nil {
			return feedback.Invalid("start_time", fmt.Sprintf("Window %d: start time must be HH:MM.", i+1))
		}
		end, err := time.Parse(clockLayout, w.EndTime)
		if err != nil {
			return feedback.Invalid("end_time", fmt.Sprintf("Window %d: end time must be HH:MM.", i+1))
		}
		if !start.Before(end) {
			return feedback.Invalid("end_time", fmt.Sprintf("Window %d: end time must be after start time.", i+1))
		}
		if w.SlotMinutes < 0 || (w.SlotMinutes > 0 && time.Duration(w.SlotMinutes)*time.Minute > end.Sub(start)) {
			return feedback.Invalid("slot_duration", fmt.Sprintf("Window %d: slot length does not fit the window.", i+1))
		}
		byDay[w.DayOfWeek] = append(byDay[w.DayOfWeek], span{start: start, end: end, idx: i})
	}
	for day, spans := range byDay {
		sort.Slice(spans, func(a, b int) bool { return spans[a].start.Before(spans[b].start) })
		for i := 1; i < len(spans); i++ {
			if spans[i].start.Before(spans[i-1].end) {
				return feedback.Invalid("availability", fmt.Sprintf("%s: windows %d and %d overlap.", Weekday(day), spans[i-1].idx+1, spans[i].idx+1))
			}
		}
	}
	return nil
}

// SortWindows orders windows by day then start time.
func SortWindows(windows []api.AvailabilityWindow) {
	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].DayOfWeek != windows[j].DayOfWeek {
			return windows[i].DayOfWeek < windows[j].DayOfWeek
		}
		return windows[i].StartTime < windows[j].StartTime
	})
}
