// Package domain holds identifier types shared across modules.
//
// Identifiers are distinct named types so a WorkerID cannot be passed where a
// RecordID is expected. Parse functions are the trust boundary: transports
// call them on raw input and receive a domain error on anything invalid.
package domain

import (
	"strconv"
	"strings"

	dErrors "healthnet/pkg/domain-errors"
)

// WorkerID identifies a health worker (the subject of verification).
type WorkerID int64

// RecordID identifies a candidate record within its source list.
type RecordID int64

func (w WorkerID) String() string { return strconv.FormatInt(int64(w), 10) }

// IsZero reports whether the id is unset.
func (w WorkerID) IsZero() bool { return w == 0 }

func (r RecordID) String() string { return strconv.FormatInt(int64(r), 10) }

// IsZero reports whether the id is unset.
func (r RecordID) IsZero() bool { return r == 0 }

// ParseWorkerID parses a positive decimal worker identifier.
func ParseWorkerID(s string) (WorkerID, error) {
	n, err := parsePositive(s, "worker id")
	if err != nil {
		return 0, err
	}
	return WorkerID(n), nil
}

// ParseRecordID parses a positive decimal record identifier.
func ParseRecordID(s string) (RecordID, error) {
	n, err := parsePositive(s, "record id")
	if err != nil {
		return 0, err
	}
	return RecordID(n), nil
}

func parsePositive(s, label string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, label+" must be positive")
	}
	return n, nil
}
