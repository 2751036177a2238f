package cte

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/ctedash/internal/domain"
)

const issueDateLayout = "2006-01-02"

// litreUnits is the set of declared-unit spellings treated as litres, compared
// after trimming and upper-casing.
var litreUnits = map[string]struct{}{
	"LITRO": {},
	"LT":    {},
	"LTS":   {},
}

// Normalize converts raw fields into a canonical record without plates.
// Unparsable dates and numbers become nil; nothing here returns an error.
func Normalize(fields ExtractedFields) domain.CanonicalRecord {
	record := domain.CanonicalRecord{
		DocumentNumber:  fields.DocumentNumber,
		Carrier:         fields.Carrier,
		Product:         fields.Product,
		OriginCity:      fields.OriginCity,
		DestinationCity: fields.DestinationCity,
		FreightValue:    parseDecimal(fields.FreightValue),
	}

	if issued := parseIssueDate(fields.EmittedAt); issued != nil {
		record.IssueDate = issued
		record.IssueMonth = issued.Month().String()
	}

	// The declared quantity survives only as litres; any other unit drops it.
	if IsLitreUnit(fields.CargoUnit) {
		record.VolumeLiters = parseDecimal(fields.CargoQuantity)
	}

	return record
}

// IsLitreUnit reports whether the declared unit text names litres.
func IsLitreUnit(unit *string) bool {
	if unit == nil {
		return false
	}
	_, ok := litreUnits[strings.ToUpper(strings.TrimSpace(*unit))]
	return ok
}

// parseIssueDate reads the calendar date from the first ten characters of the
// emission timestamp. The offset part of the timestamp is ignored.
func parseIssueDate(raw *string) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}
	value := []rune(*raw)
	if len(value) > len(issueDateLayout) {
		value = value[:len(issueDateLayout)]
	}
	parsed, err := time.Parse(issueDateLayout, string(value))
	if err != nil {
		return nil
	}
	return &parsed
}

func parseDecimal(raw *string) *float64 {
	if raw == nil {
		return nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return nil
	}
	return &parsed
}
