package domain

import "errors"

// Domain errors shared by every layer. Callers inspect them with errors.Is.
var (
	// ErrMalformedDocument marks a single CT-e that could not be parsed as XML.
	// It never aborts a batch.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrInvalidIdentifier marks a tenant/table name that fails the naming rules.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrStorageFailure marks a rejected read or write in the table store.
	ErrStorageFailure = errors.New("storage failure")

	// ErrLedgerWrite marks a failed consolidated-ledger append that happened
	// after the tenant rows were already committed.
	ErrLedgerWrite = errors.New("ledger write failed")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
