// Package window answers whether a time-gated action is allowed at a given
// instant. Every band is evaluated against a fixed UTC+5:30 shift of the
// instant rather than a real timezone: the offset is added to the UTC time
// and only the hour of day is read.
package window

import (
	"fmt"
	"time"

	"github.com/example/twiller/internal/common"
)

// Purpose names a time-gated action.
type Purpose string

const (
	Payment     Purpose = "payment"
	AudioPost   Purpose = "audio-post"
	MobileLogin Purpose = "mobile-login"
)

// RegionalOffset is the constant shift applied before reading the hour.
const RegionalOffset = 5*time.Hour + 30*time.Minute

// Band is a half-open range of shifted hours [Start, End).
type Band struct {
	Start int
	End   int
}

// Contains reports whether hour falls inside the band.
func (b Band) Contains(hour int) bool {
	return hour >= b.Start && hour < b.End
}

func (b Band) String() string {
	return fmt.Sprintf("%s - %s IST", clockLabel(b.Start), clockLabel(b.End))
}

var bands = map[Purpose]Band{
	Payment:     {Start: 10, End: 11},
	AudioPost:   {Start: 14, End: 19},
	MobileLogin: {Start: 10, End: 13},
}

var descriptions = map[Purpose]string{
	Payment:     "payments are only accepted",
	AudioPost:   "audio tweets are only allowed",
	MobileLogin: "mobile access is only allowed",
}

// BandFor returns the band configured for purpose.
func BandFor(p Purpose) (Band, bool) {
	b, ok := bands[p]
	return b, ok
}

// ShiftedHour returns the hour of day of now shifted by RegionalOffset.
func ShiftedHour(now time.Time) int {
	return now.UTC().Add(RegionalOffset).Hour()
}

// IsWithinWindow reports whether purpose is permitted at now. Unknown
// purposes are never permitted.
func IsWithinWindow(p Purpose, now time.Time) bool {
	b, ok := bands[p]
	if !ok {
		return false
	}
	return b.Contains(ShiftedHour(now))
}

// Require returns a wrapped common.ErrOutsideWindow when purpose is not
// permitted at now.
func Require(p Purpose, now time.Time) error {
	if IsWithinWindow(p, now) {
		return nil
	}
	b, ok := bands[p]
	if !ok {
		return fmt.Errorf("%w: unknown purpose %q", common.ErrOutsideWindow, p)
	}
	return fmt.Errorf("%w: %s between %s", common.ErrOutsideWindow, descriptions[p], b)
}

func clockLabel(hour int) string {
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:00 %s", h, suffix)
}
