// Package units provides shared time and rate conversions. The camera
// reports exposure in microseconds while the parameter store keeps seconds.
package units

// MicrosecondsPerSecond is the conversion factor between the device's
// exposure unit and the store's.
const MicrosecondsPerSecond = 1e6

// MicrosecondsToSeconds converts a device exposure time to seconds.
func MicrosecondsToSeconds(us float64) float64 {
	return us / MicrosecondsPerSecond
}

// SecondsToMicroseconds converts a store exposure time to the device unit.
func SecondsToMicroseconds(s float64) float64 {
	return s * MicrosecondsPerSecond
}

// FramePeriodSeconds returns the frame period for a frame rate in Hz.
// A non-positive rate yields zero.
func FramePeriodSeconds(fps float64) float64 {
	if fps <= 0 {
		return 0
	}
	return 1 / fps
}

// FrameRate returns the frame rate in Hz for a frame period in seconds.
// A non-positive period yields zero.
func FrameRate(periodSeconds float64) float64 {
	if periodSeconds <= 0 {
		return 0
	}
	return 1 / periodSeconds
}
