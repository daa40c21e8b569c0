package fsm

import "github.com/librescoot/librefsm"

// Node states
const (
	StateInit    librefsm.StateID = "init"
	StateRunning librefsm.StateID = "running"
)

// Node events
const (
	// All periodic tasks have been scheduled.
	EvTasksScheduled librefsm.EventID = "tasks-scheduled"
)
