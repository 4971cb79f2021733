package cloud

import "errors"

var (
	ErrConfigurationInvalid = errors.New("remote configuration invalid")
	ErrConnectivity         = errors.New("remote store unreachable")
	ErrSchemaMissing        = errors.New(`table "app_data" does not exist, run the setup SQL`)
	ErrWriteFailure         = errors.New("remote write failed")
	ErrNoDocument           = errors.New("remote document missing")
	ErrDisconnected         = errors.New("remote store not connected")
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
)
