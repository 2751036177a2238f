package domain

import "time"

// RecordFilter is a conjunction of optional criteria. A nil criterion is the
// "all" sentinel and is skipped.
type RecordFilter struct {
	From            *time.Time
	To              *time.Time
	OriginCity      *string
	DestinationCity *string
	Product         *string
	Carrier         *string
}

// IsEmpty reports whether the filter selects every record.
func (f RecordFilter) IsEmpty() bool {
	return f.From == nil && f.To == nil &&
		f.OriginCity == nil && f.DestinationCity == nil &&
		f.Product == nil && f.Carrier == nil
}

// HasDateBound reports whether either date bound is set.
func (f RecordFilter) HasDateBound() bool {
	return f.From != nil || f.To != nil
}
