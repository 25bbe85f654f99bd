package gen

import (
	"github.com/google/uuid"
)

type UUIDGenerator func() uuid.UUID

// UUID returns a generator of random (v4) identifiers.
func UUID() UUIDGenerator {
	return func() uuid.UUID {
		return uuid.New()
	}
}

func (g UUIDGenerator) Next() uuid.UUID {
	if g == nil {
		return uuid.Nil
	}

	return g()
}

func (g UUIDGenerator) NextString() string {
	return g.Next().String()
}
