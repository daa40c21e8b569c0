package fsm

import "github.com/librescoot/librefsm"

// NewDefinition creates the node FSM definition.
//
// There is no transition out of running: the only way back to init is a
// watchdog reset, which restarts the process.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateInit,
			librefsm.WithOnEnter(actions.EnterInit),
		).
		State(StateRunning,
			librefsm.WithOnEnter(actions.EnterRunning),
		).
		Transition(StateInit, EvTasksScheduled, StateRunning).
		Initial(StateInit)
}
