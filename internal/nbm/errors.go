package nbm

import "errors"

var (
	// ErrValidation is returned when a resource is constructed from an origin
	// that does not exist or is not of the expected kind.
	ErrValidation = errors.New("invalid resource")

	// ErrDuplicateName is returned when a registry already holds a list with the same name.
	ErrDuplicateName = errors.New("duplicate list name")

	// ErrIndexOutOfRange is returned for positions outside a list or registry.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNotFound is returned when removing a value that is not present.
	ErrNotFound = errors.New("not found")

	// ErrNotBackupable is returned by archive-member file resources, which cannot
	// be written into directly.
	ErrNotBackupable = errors.New("resource cannot be backed up")
)
