package clock

import "time"

//go:generate mockgen -package=mocks -destination=mocks/mock_clock.go github.com/palemoky/beer-pong/internal/common/clock Clock
type Clock interface {
	Now() time.Time
}

// System implements Clock using the wall clock
type System struct{}

// Now returns the current time
func (System) Now() time.Time {
	return time.Now()
}
