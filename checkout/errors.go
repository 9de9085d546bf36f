package checkout

import "errors"

var ErrInvalidConfig = errors.New("invalid simulation config")
var ErrAlreadyStarted = errors.New("simulation already started")
var ErrNilOption = errors.New("nil value supplied to option")
