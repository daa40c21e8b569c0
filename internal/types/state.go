package types

type SystemState string

const (
	StateInit    SystemState = "init"
	StateRunning SystemState = "running"
)
