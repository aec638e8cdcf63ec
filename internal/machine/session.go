package machine

import "github.com/google/uuid"

// IDGenerator produces session identifiers.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() string

func (f IDGeneratorFunc) NewID() string { return f() }

// UUIDGenerator issues "session-<uuid>" identifiers.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return "session-" + uuid.NewString() }
