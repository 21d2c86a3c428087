package decision

import (
	"fmt"
	"strings"
)

// ParseWindows parses a rush-hour override of the form
// "07:00-09:30,16:00-18:30". An empty string yields nil (use defaults).
func ParseWindows(s string) ([]Window, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var windows []Window
	for _, part := range strings.Split(s, ",") {
		bounds := strings.Split(strings.TrimSpace(part), "-")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid window %q: want HH:MM-HH:MM", part)
		}
		var w Window
		if _, err := fmt.Sscanf(bounds[0], "%d:%d", &w.StartHour, &w.StartMin); err != nil {
			return nil, fmt.Errorf("invalid window start %q: %w", bounds[0], err)
		}
		if _, err := fmt.Sscanf(bounds[1], "%d:%d", &w.EndHour, &w.EndMin); err != nil {
			return nil, fmt.Errorf("invalid window end %q: %w", bounds[1], err)
		}
		if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 24 ||
			w.StartMin < 0 || w.StartMin > 59 || w.EndMin < 0 || w.EndMin > 59 {
			return nil, fmt.Errorf("window %q out of range", part)
		}
		if w.StartHour*60+w.StartMin >= w.EndHour*60+w.EndMin {
			return nil, fmt.Errorf("window %q ends before it starts", part)
		}
		windows = append(windows, w)
	}
	return windows, nil
}
