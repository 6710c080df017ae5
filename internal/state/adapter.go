package state

import (
	"errors"
	"sync"
	"time"
)

// ErrStateUnavailable means robot or world state has never been pushed.
// Scoring carries on without contextual priors.
var ErrStateUnavailable = errors.New("robot or world state unavailable")

// Adapter receives state pushed by the robot system and hands out
// snapshots. It is safe for concurrent use; readers never wait for fresher
// state.
type Adapter struct {
	mu        sync.RWMutex
	robot     *RobotState
	world     *WorldState
	updatedAt time.Time
	now       func() time.Time
}

func NewAdapter() *Adapter {
	return &Adapter{now: time.Now}
}

func (a *Adapter) PushRobot(r RobotState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.robot = r.Clone()
	a.updatedAt = a.now()
}

func (a *Adapter) PushWorld(w WorldState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.world = w.Clone()
	a.updatedAt = a.now()
}

// Snapshot is the latest state at the time of the call.
func (a *Adapter) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{Robot: a.robot.Clone(), World: a.world.Clone(), TakenAt: a.updatedAt}
}

type Snapshot struct {
	Robot   *RobotState
	World   *WorldState
	TakenAt time.Time
}

// Err returns ErrStateUnavailable when either half of the state is missing.
func (s Snapshot) Err() error {
	if s.Robot == nil || s.World == nil {
		return ErrStateUnavailable
	}
	return nil
}
