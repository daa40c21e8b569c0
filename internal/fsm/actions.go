package fsm

import "github.com/librescoot/librefsm"

// Actions defines the callbacks of the node state machine.
// BodyControlSystem implements this interface.
type Actions interface {
	EnterInit(c *librefsm.Context) error
	EnterRunning(c *librefsm.Context) error
}
