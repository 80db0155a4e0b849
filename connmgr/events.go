package connmgr

import "time"

// ConnEvent is a lifecycle event observed on an underlying connection
type ConnEvent int

const (
	// EventConnect fires when a server connection is established
	EventConnect ConnEvent = iota
	// EventReady fires when the connection is ready to accept commands
	EventReady
	// EventError fires when a dial or command on the connection fails
	EventError
	// EventClose fires when the connection is closed locally
	EventClose
	// EventReconnecting fires when a reconnect attempt starts
	EventReconnecting
	// EventEnd fires when the connection is gone for good
	EventEnd
)

// String returns the string representation of ConnEvent
func (e ConnEvent) String() string {
	switch e {
	case EventConnect:
		return "connect"
	case EventReady:
		return "ready"
	case EventError:
		return "error"
	case EventClose:
		return "close"
	case EventReconnecting:
		return "reconnecting"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// keepScore marks transitions that leave the health score untouched
const keepScore = -1

// transition describes the record mutation for one connection event
type transition struct {
	status            ConnectionStatus
	healthScore       int
	stampConnectedAt  bool
	incrementAttempts bool
	dropConnection    bool // discard the connection object; the record stays
}

// transitions is the state-machine table: event -> record mutation.
// Error classification and reconnect scheduling happen around this table,
// in the manager's event handler.
var transitions = map[ConnEvent]transition{
	EventConnect:      {status: StatusConnected, healthScore: 100, stampConnectedAt: true},
	EventReady:        {status: StatusConnected, healthScore: 100},
	EventError:        {status: StatusError, healthScore: 0},
	EventClose:        {status: StatusDisconnected, healthScore: 0},
	EventReconnecting: {status: StatusConnecting, healthScore: keepScore, incrementAttempts: true},
	EventEnd:          {status: StatusDisconnected, healthScore: 0, dropConnection: true},
}

// applyEvent mutates the record per the transition table and reports whether
// the connection object should be dropped from the pool. Pure in-memory
// mutation, testable without a live connection.
func applyEvent(rec *ConnectionInfo, event ConnEvent, now time.Time) (dropConnection bool) {
	t, ok := transitions[event]
	if !ok {
		return false
	}

	rec.Status = t.status
	if t.healthScore != keepScore {
		rec.HealthScore = clampScore(t.healthScore)
	}
	if t.stampConnectedAt {
		rec.ConnectedAt = now
	}
	if t.incrementAttempts {
		rec.ReconnectAttempts++
	}

	return t.dropConnection
}

// clampScore bounds a health score to [0, 100]
func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
