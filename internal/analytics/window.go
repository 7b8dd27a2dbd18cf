package analytics

import "time"

// WindowMonths is the number of calendar months covered by a summary.
const WindowMonths = 12

// Window is a run of consecutive UTC calendar months ending at a reference month.
type Window struct {
	months []time.Time
	index  map[string]int
}

// NewWindow returns the WindowMonths months ending at the month containing now.
func NewWindow(now time.Time) Window {
	return newWindow(now, WindowMonths)
}

func newWindow(now time.Time, size int) Window {
	start := addMonths(now, -(size - 1))
	w := Window{
		months: make([]time.Time, size),
		index:  make(map[string]int, size),
	}
	for i := range size {
		m := addMonths(start, i)
		w.months[i] = m
		w.index[MonthKey(m)] = i
	}
	return w
}

// MonthKey formats t as its YYYY-MM bucket key in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// addMonths returns the first day of the month offset months away from t's month.
func addMonths(t time.Time, offset int) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
}

// Len returns the number of months in the window.
func (w Window) Len() int { return len(w.months) }

// Month returns the first instant of the i-th month, oldest first.
func (w Window) Month(i int) time.Time { return w.months[i] }

// Keys returns the bucket keys in chronological order.
func (w Window) Keys() []string {
	keys := make([]string, len(w.months))
	for i, m := range w.months {
		keys[i] = MonthKey(m)
	}
	return keys
}

// Start is the inclusive lower bound of the window.
func (w Window) Start() time.Time {
	if len(w.months) == 0 {
		return time.Time{}
	}
	return w.months[0]
}

// End is the exclusive upper bound: the first day of the month after the window.
func (w Window) End() time.Time {
	return w.Next()
}

// Next returns the first day of the month following the window.
func (w Window) Next() time.Time {
	if len(w.months) == 0 {
		return time.Time{}
	}
	return addMonths(w.months[len(w.months)-1], 1)
}

// IndexOf returns the bucket index for t, or false when t falls outside the window.
func (w Window) IndexOf(t time.Time) (int, bool) {
	if t.IsZero() {
		return 0, false
	}
	i, ok := w.index[MonthKey(t)]
	return i, ok
}
