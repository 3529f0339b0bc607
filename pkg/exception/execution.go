package exception

import "errors"

var (
	ErrExecClientNotFound   = errors.New("execution: client not found")
	ErrExecClientRegistered = errors.New("execution: client already registered")
	ErrExecEngineRunning    = errors.New("execution: engine already running")
	ErrExecEngineStopped    = errors.New("execution: engine not running")
	ErrExecUnknownCommand   = errors.New("execution: unknown command")
	ErrExecInstrumentAbsent = errors.New("execution: instrument not found")
	ErrExecNoMassStatus     = errors.New("execution: client returned no mass status")
)
