package rack

import (
	"errors"
	"strings"
)

// Registry errors. Engine panics with these errors wrapped when the caller
// breaks the registry contract.
var (
	// ErrModuleExists is used when module is added twice.
	ErrModuleExists = errors.New("module already added")
	// ErrModuleNotFound is used when module is not registered.
	ErrModuleNotFound = errors.New("module not found")
	// ErrDuplicateID is used when id is already taken by another module
	// or cable.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrCableExists is used when cable is added twice.
	ErrCableExists = errors.New("cable already added")
	// ErrCableNotFound is used when cable is not registered.
	ErrCableNotFound = errors.New("cable not found")
	// ErrInputOccupied is used when another cable already targets the
	// input.
	ErrInputOccupied = errors.New("input already connected")
	// ErrDanglingCable is used when module is removed while cables still
	// reference it.
	ErrDanglingCable = errors.New("module has connected cables")
	// ErrPortRange is used when cable references port that doesn't exist.
	ErrPortRange = errors.New("port out of range")
	// ErrParamRange is used when param id doesn't exist.
	ErrParamRange = errors.New("param out of range")
	// ErrHandleExists is used when param handle is added twice.
	ErrHandleExists = errors.New("param handle already added")
	// ErrHandleNotFound is used when param handle is not registered.
	ErrHandleNotFound = errors.New("param handle not found")
	// ErrHandleNotBlank is used when targeted param handle is added.
	ErrHandleNotBlank = errors.New("param handle is not blank")
	// ErrNilModule is used when nil module is passed to engine.
	ErrNilModule = errors.New("nil module")
)

// Serialization errors.
var (
	// ErrInvalidPatch is returned when patch is not a valid JSON object.
	ErrInvalidPatch = errors.New("invalid patch")
	// ErrUnknownModel is used when catalog doesn't contain module model.
	ErrUnknownModel = errors.New("unknown model")
	// ErrMissingEndpoint is used when cable entry lacks module or port id
	// of any of its ends.
	ErrMissingEndpoint = errors.New("cable endpoint missing")
	// ErrModelExists is returned when model slug is registered twice.
	ErrModelExists = errors.New("model already registered")
)

// LoadErrors wraps errors of patch entries that were skipped during load.
// Patch is still loaded partially when LoadErrors is returned.
type LoadErrors []error

func (e LoadErrors) Error() string {
	s := []string{}
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, ",")
}

// Is checks if any of errors match provided sentinel error.
func (e LoadErrors) Is(err error) bool {
	for _, se := range e {
		if errors.Is(se, err) {
			return true
		}
	}
	return false
}

// ret returns untyped nil if error is list is empty.
func (e LoadErrors) ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
