// Package storage defines the Storage interface, the contract any
// document store backend must satisfy to serve the handlers.
//
// Handlers depend only on this interface, so the MongoDB and SQLite
// backends are interchangeable and tests can pass a fake.
package storage

import (
	"context"
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/aanand-mishra/students-api/internal/types"
)

// Storage is the document store contract.
//
// Not-found and zero-effect outcomes are never errors: FindOne reports
// absence through its bool, Update and Delete through their counts. An
// error always means the call itself failed and carries a Kind.
type Storage interface {
	// Find returns every student, optionally sorted by sortBy. An empty
	// store yields an empty, non-nil slice.
	Find(ctx context.Context, sortBy, order string) ([]types.Student, error)

	// FindOne returns the student with the given id. found is false when
	// no such student exists.
	FindOne(ctx context.Context, id string) (student types.Student, found bool, err error)

	// Create inserts the student under a freshly generated identifier and
	// returns that identifier.
	Create(ctx context.Context, student types.CreateStudent) (string, error)

	// Update merges the fields present in student into the stored record
	// and returns how many documents actually changed.
	Update(ctx context.Context, id string, student types.UpdateStudent) (string, int64, error)

	// Delete removes the student and returns how many documents were removed.
	Delete(ctx context.Context, id string) (string, int64, error)

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

// Kind classifies a storage failure so callers can map it to a response
// without inspecting driver errors.
type Kind uint8

const (
	// KindTransport covers driver, connection and codec failures.
	KindTransport Kind = iota + 1
	// KindValidation covers inputs the store refuses, e.g. a sort field
	// that is not a plain field name.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Error is returned by every Storage implementation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transport wraps err as a KindTransport failure of op.
func Transport(op string, err error) error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// Invalid wraps err as a KindValidation failure of op.
func Invalid(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

// KindOf reports the Kind of err. Errors that did not come from a
// Storage implementation are treated as transport failures.
func KindOf(err error) Kind {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind
	}
	return KindTransport
}

// IDLength is the fixed length of every student identifier.
const IDLength = 10

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewID returns a random identifier of IDLength characters from [A-Z0-9].
func NewID() (string, error) {
	id := make([]byte, 0, IDLength)
	buf := make([]byte, IDLength)
	for len(id) < IDLength {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Wrap(err, "reading random bytes")
		}
		// 252 is the largest multiple of 36 that fits in a byte; anything
		// at or above it would bias the alphabet and is redrawn.
		for _, b := range buf {
			if b >= 252 || len(id) == IDLength {
				continue
			}
			id = append(id, idAlphabet[int(b)%len(idAlphabet)])
		}
	}
	return string(id), nil
}

// IDField is the API name of the identifier; sorting by it sorts by key.
const IDField = "student_id"

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Sort is a parsed sort_by/order pair.
type Sort struct {
	Field      string
	Descending bool
}

// ParseSort validates sortBy and order. ok is false when sortBy is empty,
// meaning no ordering was requested. "desc" in any case sorts descending;
// any other order sorts ascending.
//
// "_id" is the Mongo name of the key and is treated as IDField, so every
// adapter sorts it by the key rather than by a document field.
func ParseSort(sortBy, order string) (sort Sort, ok bool, err error) {
	if sortBy == "" {
		return Sort{}, false, nil
	}
	if !fieldName.MatchString(sortBy) {
		return Sort{}, false, errors.Errorf("invalid sort field %q", sortBy)
	}
	if sortBy == "_id" {
		sortBy = IDField
	}
	return Sort{
		Field:      sortBy,
		Descending: strings.EqualFold(order, "desc"),
	}, true, nil
}
