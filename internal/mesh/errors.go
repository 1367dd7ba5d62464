package mesh

import "errors"

// ErrNotInitialized indicates the mesh has no membership file yet.
var ErrNotInitialized = errors.New("mesh is not initialized")

// ErrAlreadyInitialized indicates init was run against an existing mesh.
var ErrAlreadyInitialized = errors.New("mesh is already initialized")

// ErrNodeNotFound indicates a name with no membership record.
var ErrNodeNotFound = errors.New("node not found")

// ErrAnchorProtected indicates an attempt to delete the anchor. The anchor
// is created by init and exists for the lifetime of the mesh.
var ErrAnchorProtected = errors.New("anchor node cannot be deleted")

// ValidationError indicates an invalid input to a mesh operation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + " " + e.Message
	}
	return e.Message
}
