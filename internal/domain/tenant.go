package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxTenantIDLength is the longest identifier Postgres keeps without truncation.
const MaxTenantIDLength = 63

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Table names owned by the application itself. A tenant may not claim them.
var reservedTableNames = map[string]struct{}{
	"app_users":         {},
	"cte_ledger":        {},
	"ingestion_logs":    {},
	"schema_migrations": {},
}

// TenantID names one tenant and, at the same time, the table that holds its
// records. The zero value is not a valid tenant; build one with ParseTenantID.
type TenantID struct {
	name string
}

// ParseTenantID validates raw against the identifier rules. Any value it
// accepts is safe to use as a SQL table identifier.
func ParseTenantID(raw string) (TenantID, error) {
	if raw == "" {
		return TenantID{}, fmt.Errorf("%w: tenant id is required", ErrInvalidIdentifier)
	}
	if len(raw) > MaxTenantIDLength {
		return TenantID{}, fmt.Errorf("%w: tenant id %q exceeds %d characters", ErrInvalidIdentifier, raw, MaxTenantIDLength)
	}
	if !tenantIDPattern.MatchString(raw) {
		return TenantID{}, fmt.Errorf("%w: tenant id %q must match %s", ErrInvalidIdentifier, raw, tenantIDPattern.String())
	}
	if _, reserved := reservedTableNames[strings.ToLower(raw)]; reserved {
		return TenantID{}, fmt.Errorf("%w: tenant id %q is reserved", ErrInvalidIdentifier, raw)
	}
	return TenantID{name: raw}, nil
}

// MustTenantID is ParseTenantID for constants and tests.
func MustTenantID(raw string) TenantID {
	id, err := ParseTenantID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the identifier as given.
func (t TenantID) String() string {
	return t.name
}

// TableName returns the name of the tenant's record table.
func (t TenantID) TableName() string {
	return t.name
}

// IsZero reports whether t was never validated.
func (t TenantID) IsZero() bool {
	return t.name == ""
}

// MarshalText implements encoding.TextMarshaler.
func (t TenantID) MarshalText() ([]byte, error) {
	return []byte(t.name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and validates the input.
func (t *TenantID) UnmarshalText(text []byte) error {
	parsed, err := ParseTenantID(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
