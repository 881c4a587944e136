// Package progress reports how far a reader has advanced through its
// input.
package progress

// Notifier fires its callbacks synchronously from the reading goroutine.
// With Interval <= 0 every record is reported, otherwise only records whose
// index is a multiple of Interval. Nil callbacks are skipped.
type Notifier struct {
	Interval      int
	OnRecordsRead func(current, total int)
	OnPercentRead func(fraction float64)
}

// Due reports whether record index current falls on the cadence.
func (n *Notifier) Due(current int) bool {
	if n == nil {
		return false
	}
	if n.Interval <= 0 {
		return true
	}
	return current%n.Interval == 0
}

// Notify fires both callbacks when current is due.
func (n *Notifier) Notify(current, total int, fraction float64) {
	if !n.Due(current) {
		return
	}
	if n.OnRecordsRead != nil {
		n.OnRecordsRead(current, total)
	}
	if n.OnPercentRead != nil {
		n.OnPercentRead(fraction)
	}
}
