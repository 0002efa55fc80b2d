package clock

import (
	"sync"
	"time"
)

// Clock reports the current time, optionally offset from a fixed
// start so tests can run against a frozen or shifted timeline.
type Clock struct {
	start time.Time
}

var (
	mu          sync.Mutex
	systemClock *Clock
	startTime   time.Time
)

// Set pins the clock to the given start time. With no argument the
// clock follows the system time.
func Set(startTimes ...time.Time) {
	mu.Lock()
	defer mu.Unlock()

	startTime = time.Now().UTC()

	if len(startTimes) != 0 {
		systemClock = &Clock{start: startTimes[0]}
	} else {
		systemClock = &Clock{start: startTime}
	}
}

func Now() time.Time {
	mu.Lock()
	defer mu.Unlock()

	if systemClock == nil {
		startTime = time.Now().UTC()
		systemClock = &Clock{start: startTime}
	}

	return systemClock.start.Add(time.Now().UTC().Sub(startTime))
}
