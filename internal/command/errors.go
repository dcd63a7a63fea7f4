package command

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for the command package.
var (
	// ErrUnknownField is returned when a field is not in the family's flag table.
	ErrUnknownField = errors.New("command: unknown field")

	// ErrInvalidValue is returned when a value cannot be coerced to the field type.
	ErrInvalidValue = errors.New("command: invalid value")

	// ErrReadOnly is returned for intents the target zone does not accept.
	ErrReadOnly = errors.New("command: read-only")

	// ErrNoChanges is returned when an encode is requested with nothing to set.
	ErrNoChanges = errors.New("command: no changes")

	// ErrUnknownZone is returned when the device layout has no zone for a role.
	ErrUnknownZone = errors.New("command: zone not present on device")

	// ErrUnknownButton is returned for a button mode outside the family table.
	ErrUnknownButton = errors.New("command: unknown button mode")

	// ErrPresetNotFound is returned when the device has no server preset with the id.
	ErrPresetNotFound = errors.New("command: preset not found")

	// ErrCommandFailed matches every *CommandError.
	ErrCommandFailed = errors.New("command: failed")
)

// CommandError describes a command that could not be delivered.
type CommandError struct {
	Source   string
	DeviceID int
	Field    string
	Value    any
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s=%v from %s to device %d: %v", e.Field, e.Value, e.Source, e.DeviceID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// Is matches ErrCommandFailed.
func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

func newCommandError(source string, deviceID int, changes []Change, err error) *CommandError {
	ce := &CommandError{Source: source, DeviceID: deviceID, Err: err}
	switch len(changes) {
	case 0:
	case 1:
		ce.Field, ce.Value = changes[0].Field, changes[0].Value
	default:
		names := make([]string, len(changes))
		for i, c := range changes {
			names[i] = c.Field
		}
		ce.Field = strings.Join(names, ",")
		ce.Value = changes
	}
	return ce
}
