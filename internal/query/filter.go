// Package query filters and aggregates canonical records and serves them per
// tenant, scoped to the caller's session.
package query

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rpattn/ctedash/internal/domain"
)

// AllSentinel is the filter value meaning "no restriction".
const AllSentinel = "all"

const dateLayout = "2006-01-02"

// Filter returns the records matching every set criterion, in input order.
// Date bounds are inclusive and compare calendar days. Once a date bound is
// set, records without an issue date are excluded. A nil record field never
// matches a set text criterion.
func Filter(records []domain.CanonicalRecord, filter domain.RecordFilter) []domain.CanonicalRecord {
	if filter.IsEmpty() {
		out := make([]domain.CanonicalRecord, len(records))
		copy(out, records)
		return out
	}

	out := make([]domain.CanonicalRecord, 0, len(records))
	for _, record := range records {
		if matches(record, filter) {
			out = append(out, record)
		}
	}
	return out
}

func matches(record domain.CanonicalRecord, filter domain.RecordFilter) bool {
	if filter.HasDateBound() {
		if record.IssueDate == nil {
			return false
		}
		day := calendarDay(*record.IssueDate)
		if filter.From != nil && day.Before(calendarDay(*filter.From)) {
			return false
		}
		if filter.To != nil && day.After(calendarDay(*filter.To)) {
			return false
		}
	}
	return textMatches(record.OriginCity, filter.OriginCity) &&
		textMatches(record.DestinationCity, filter.DestinationCity) &&
		textMatches(record.Product, filter.Product) &&
		textMatches(record.Carrier, filter.Carrier)
}

func textMatches(value, criterion *string) bool {
	if criterion == nil {
		return true
	}
	return value != nil && *value == *criterion
}

func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseFilter reads from, to, origin, destination, product and carrier from
// query parameters. Absent, empty and "all" values leave the criterion unset.
func ParseFilter(values url.Values) (domain.RecordFilter, error) {
	var filter domain.RecordFilter

	from, err := parseDateParam(values, "from")
	if err != nil {
		return domain.RecordFilter{}, err
	}
	to, err := parseDateParam(values, "to")
	if err != nil {
		return domain.RecordFilter{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return domain.RecordFilter{}, fmt.Errorf("%w: to %s is before from %s", domain.ErrInvalidInput, to.Format(dateLayout), from.Format(dateLayout))
	}

	filter.From = from
	filter.To = to
	filter.OriginCity = textParam(values, "origin")
	filter.DestinationCity = textParam(values, "destination")
	filter.Product = textParam(values, "product")
	filter.Carrier = textParam(values, "carrier")
	return filter, nil
}

func textParam(values url.Values, name string) *string {
	value := strings.TrimSpace(values.Get(name))
	if value == "" || strings.EqualFold(value, AllSentinel) {
		return nil
	}
	return &value
}

func parseDateParam(values url.Values, name string) (*time.Time, error) {
	raw := textParam(values, name)
	if raw == nil {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a YYYY-MM-DD date", domain.ErrInvalidInput, name)
	}
	return &parsed, nil
}
