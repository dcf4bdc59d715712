package model

import "time"

// Interval полуоткрытый интервал [Start, End)
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval создаёт интервал
func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Valid true если End > Start
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Duration длительность интервала
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps s1 < e2 AND s2 < e1; касание границ пересечением не считается
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains true если other целиком лежит внутри i
func (i Interval) Contains(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}
