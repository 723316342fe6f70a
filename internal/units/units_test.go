package units

import "testing"

func TestExposureConversions(t *testing.T) {
	if got := MicrosecondsToSeconds(99900); got != 0.0999 {
		t.Errorf("MicrosecondsToSeconds(99900) = %v, want 0.0999", got)
	}
	if got := SecondsToMicroseconds(0.0999); got != 99900 {
		t.Errorf("SecondsToMicroseconds(0.0999) = %v, want 99900", got)
	}
}

func TestFramePeriod(t *testing.T) {
	if got := FramePeriodSeconds(10); got != 0.1 {
		t.Errorf("FramePeriodSeconds(10) = %v, want 0.1", got)
	}
	if got := FramePeriodSeconds(0); got != 0 {
		t.Errorf("FramePeriodSeconds(0) = %v, want 0", got)
	}
	if got := FramePeriodSeconds(-5); got != 0 {
		t.Errorf("FramePeriodSeconds(-5) = %v, want 0", got)
	}
}

func TestFrameRate(t *testing.T) {
	if got := FrameRate(0.1); got != 10 {
		t.Errorf("FrameRate(0.1) = %v, want 10", got)
	}
	if got := FrameRate(0); got != 0 {
		t.Errorf("FrameRate(0) = %v, want 0", got)
	}
}
