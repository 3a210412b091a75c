package schemafilter

import (
	"errors"

	"github.com/llehouerou/go-graphql-schema-filter/internal/rebuild"
)

// ErrEmptyTarget is returned when the target identifier is empty or
// blank. It is checked before any analysis work starts.
var ErrEmptyTarget = errors.New("schemafilter: empty target")

// ErrUnknownStrategy is returned for a strategy name this package does
// not implement.
var ErrUnknownStrategy = errors.New("schemafilter: unknown strategy")

// ConsistencyError reports a duplicate-named or dangling entity in a
// rebuilt schema. It indicates a defect in the construction phases,
// not a problem with the input, and is never recoverable.
type ConsistencyError = rebuild.ConsistencyError
