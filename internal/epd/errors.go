package epd

import "errors"

// ErrBusyTimeout is returned when the busy line does not go idle within the
// configured bound. The command that triggered the wait has already been
// issued; callers may retry the whole operation once the controller settles.
var ErrBusyTimeout = errors.New("epd: busy wait timed out")

// ErrInvalidModeTransition is returned when an operation is called in a
// panel state that does not permit it, e.g. Display before BeginBinary or
// BeginGray2 before PowerOn. No commands are sent for rejected transitions.
var ErrInvalidModeTransition = errors.New("epd: invalid mode transition")
