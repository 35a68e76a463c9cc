package models

import "time"

// LateAfter is how long after a session starts an arrival still counts as on time.
const LateAfter = 10 * time.Minute

// Started returns the start of s in loc, or false when the date or start time
// cannot be parsed.
func (s *Session) Started(loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02 15:04", s.Date+" "+s.StartTime, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ArrivalAt classifies an arrival at time at.
func (s *Session) ArrivalAt(at time.Time) string {
	start, ok := s.Started(at.Location())
	if !ok || !at.After(start.Add(LateAfter)) {
		return ArrivalOnTime
	}
	return ArrivalLate
}
