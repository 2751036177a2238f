package query

import "github.com/rpattn/ctedash/internal/domain"

// GroupKey extracts the grouping value of a record; nil means the record has
// no value for the key.
type GroupKey func(domain.CanonicalRecord) *string

var (
	GroupByDestination GroupKey = func(r domain.CanonicalRecord) *string { return r.DestinationCity }
	GroupByOrigin      GroupKey = func(r domain.CanonicalRecord) *string { return r.OriginCity }
	GroupByProduct     GroupKey = func(r domain.CanonicalRecord) *string { return r.Product }
	GroupByCarrier     GroupKey = func(r domain.CanonicalRecord) *string { return r.Carrier }
	GroupByMonth       GroupKey = func(r domain.CanonicalRecord) *string {
		if r.IssueMonth == "" {
			return nil
		}
		month := r.IssueMonth
		return &month
	}
)

// Aggregate counts records and sums liters and freight. Absent numerics count
// as zero; an empty input yields all zeros.
func Aggregate(records []domain.CanonicalRecord) domain.Summary {
	summary := domain.Summary{Count: len(records)}
	for _, record := range records {
		if record.VolumeLiters != nil {
			summary.TotalLiters += *record.VolumeLiters
		}
		if record.FreightValue != nil {
			summary.TotalFreight += *record.FreightValue
		}
	}
	return summary
}

// GroupCount tallies records per key in first-occurrence order. Records
// without a key are skipped.
func GroupCount(records []domain.CanonicalRecord, key GroupKey) []domain.GroupCount {
	index := map[string]int{}
	out := []domain.GroupCount{}
	for _, record := range records {
		value := key(record)
		if value == nil {
			continue
		}
		i, ok := index[*value]
		if !ok {
			i = len(out)
			index[*value] = i
			out = append(out, domain.GroupCount{Key: *value})
		}
		out[i].Count++
	}
	return out
}

// GroupSumLiters sums volume per key in first-occurrence order. Records
// without a key are skipped; absent volumes add zero.
func GroupSumLiters(records []domain.CanonicalRecord, key GroupKey) []domain.GroupSum {
	index := map[string]int{}
	out := []domain.GroupSum{}
	for _, record := range records {
		value := key(record)
		if value == nil {
			continue
		}
		i, ok := index[*value]
		if !ok {
			i = len(out)
			index[*value] = i
			out = append(out, domain.GroupSum{Key: *value})
		}
		if record.VolumeLiters != nil {
			out[i].Total += *record.VolumeLiters
		}
	}
	return out
}
