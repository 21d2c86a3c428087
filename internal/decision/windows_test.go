package decision

import "testing"

func TestParseWindows(t *testing.T) {
	windows, err := ParseWindows("07:00-09:30,16:00-18:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("parsed %d windows, want 2", len(windows))
	}
	want := Window{StartHour: 16, EndHour: 18, EndMin: 30}
	if windows[1] != want {
		t.Errorf("second window = %+v, want %+v", windows[1], want)
	}
}

func TestParseWindowsEmptyMeansDefaults(t *testing.T) {
	windows, err := ParseWindows("  ")
	if err != nil || windows != nil {
		t.Errorf("empty input should yield nil, nil; got %v, %v", windows, err)
	}
}

func TestParseWindowsRejectsMalformed(t *testing.T) {
	cases := []string{
		"0700-0930",
		"07:00",
		"09:30-07:00",
		"25:00-26:00",
		"07:00-09:75",
	}
	for _, c := range cases {
		if _, err := ParseWindows(c); err == nil {
			t.Errorf("ParseWindows(%q) should fail", c)
		}
	}
}
