// Package identity mints unique, time-ordered 64-bit calibration IDs without
// central coordination. Each process constructs exactly one Generator at
// startup with a configuration-assigned (datacenter, worker) pair; two
// generators sharing the same pair may collide within a millisecond.
package identity

import (
	"fmt"
	"sync"
	"time"
)

const (
	// Custom epoch: 2020-01-01T00:00:00Z in Unix milliseconds. Keeps the
	// 41-bit timestamp field good for roughly 69 years.
	epochMillis int64 = 1577836800000

	datacenterBits = 5
	workerBits     = 5
	sequenceBits   = 12

	maxDatacenterID = (1 << datacenterBits) - 1
	maxWorkerID     = (1 << workerBits) - 1
	sequenceMask    = (1 << sequenceBits) - 1

	workerShift     = sequenceBits
	datacenterShift = sequenceBits + workerBits
	timestampShift  = sequenceBits + workerBits + datacenterBits
)

// Generator produces IDs of the form:
//
//	| 41 bits millis since epoch | 5 bits datacenter | 5 bits worker | 12 bits sequence |
//
// The sign bit is never set, so values are safe to store as SQLite INTEGER.
type Generator struct {
	mutex sync.Mutex

	datacenterID int64
	workerID     int64
	lastMillis   int64
	sequence     int64

	// now is swapped out in tests to simulate clock behavior.
	now func() time.Time
}

// NewGenerator creates a generator for the given datacenter and worker IDs,
// each bounded to 0-31.
func NewGenerator(datacenterID, workerID int64) (*Generator, error) {
	if datacenterID < 0 || datacenterID > maxDatacenterID {
		return nil, fmt.Errorf("datacenter id %d out of range (0-%d)", datacenterID, maxDatacenterID)
	}
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("worker id %d out of range (0-%d)", workerID, maxWorkerID)
	}

	return &Generator{
		datacenterID: datacenterID,
		workerID:     workerID,
		lastMillis:   -1,
		now:          time.Now,
	}, nil
}

// Next returns the next ID. It is safe for concurrent use and never fails;
// within a single generator the returned values are strictly increasing.
func (g *Generator) Next() int64 {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	millis := g.now().UnixMilli()

	// A wall clock reading earlier than the last tick must not produce a
	// smaller ID. Keep issuing against the last observed tick instead.
	if millis < g.lastMillis {
		millis = g.lastMillis
	}

	if millis == g.lastMillis {
		g.sequence = (g.sequence + 1) & sequenceMask
		if g.sequence == 0 {
			// Sequence exhausted within this millisecond. Roll the
			// timestamp forward; real time catches up on the next tick.
			millis++
		}
	} else {
		g.sequence = 0
	}

	g.lastMillis = millis

	return (millis-epochMillis)<<timestampShift |
		g.datacenterID<<datacenterShift |
		g.workerID<<workerShift |
		g.sequence
}

// DatacenterID returns the configured datacenter identifier.
func (g *Generator) DatacenterID() int64 {
	return g.datacenterID
}

// WorkerID returns the configured worker identifier.
func (g *Generator) WorkerID() int64 {
	return g.workerID
}
