package interfaces

import "time"

// ISessionClock answers whether a timestamp falls inside the regular
// trading session.
type ISessionClock interface {
	IsRegularHours(t time.Time) bool
}
