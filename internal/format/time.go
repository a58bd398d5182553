package format

import (
	"time"
)

const (
	filetimeOffset = 116444736000000000 // difference between FILETIME epoch and Unix epoch in 100ns units
	filetimeUnit   = 100                // FILETIME units are 100ns
)

// FiletimeToTime converts a FILETIME value to time.Time. Zero, which compound
// files use for "not recorded", maps to the zero time.
func FiletimeToTime(v uint64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	if v <= filetimeOffset {
		return time.Unix(0, 0).UTC()
	}
	ns := int64((v - filetimeOffset) * filetimeUnit)
	return time.Unix(ns/int64(time.Second), ns%int64(time.Second)).UTC()
}

// TimeToFiletime converts t to a FILETIME value. The zero time maps to 0.
func TimeToFiletime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	ns := t.UnixNano()
	if ns < 0 {
		ns = 0
	}
	return uint64(ns)/filetimeUnit + filetimeOffset
}
