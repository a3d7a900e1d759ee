package catalog

import "time"

// IsTradable reports whether an asset's market accepts sessions at t.
// Synthetic indices tick around the clock. Forex follows the provider's
// weekly window: closed from Friday 21:00 UTC to Sunday 21:00 UTC.
func IsTradable(a Asset, t time.Time) bool {
	if a.Category != "forex" {
		return true
	}
	t = t.UTC()
	switch t.Weekday() {
	case time.Saturday:
		return false
	case time.Friday:
		return t.Hour() < 21
	case time.Sunday:
		return t.Hour() >= 21
	default:
		return true
	}
}
