package query

import (
	"net/url"
	"testing"
	"time"

	"github.com/rpattn/ctedash/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string {
	return &s
}

func floatptr(f float64) *float64 {
	return &f
}

func day(value string) *time.Time {
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		panic(err)
	}
	return &parsed
}

func trip(doc, origin, destination, product string, date *time.Time, liters, freight *float64) domain.CanonicalRecord {
	record := domain.CanonicalRecord{
		IssueDate:      date,
		DocumentNumber: strptr(doc),
		Plates:         domain.HeuristicPlates(nil),
		VolumeLiters:   liters,
		FreightValue:   freight,
	}
	if date != nil {
		record.IssueMonth = date.Month().String()
	}
	if origin != "" {
		record.OriginCity = strptr(origin)
	}
	if destination != "" {
		record.DestinationCity = strptr(destination)
	}
	if product != "" {
		record.Product = strptr(product)
	}
	return record
}

func documentNumbers(records []domain.CanonicalRecord) []string {
	out := make([]string, len(records))
	for i, record := range records {
		out[i] = *record.DocumentNumber
	}
	return out
}

func sampleRecords() []domain.CanonicalRecord {
	return []domain.CanonicalRecord{
		trip("1", "PAULINIA", "CAMPINAS", "DIESEL", day("2024-01-05"), floatptr(30000), floatptr(1200)),
		trip("2", "PAULINIA", "SANTOS", "GASOLINA", day("2024-01-20"), floatptr(15000), floatptr(900.5)),
		trip("3", "SANTOS", "CAMPINAS", "DIESEL", day("2024-02-01"), nil, floatptr(300)),
		trip("4", "", "", "ETANOL", nil, floatptr(5000), nil),
		trip("5", "PAULINIA", "CAMPINAS", "GASOLINA", day("2024-03-10"), floatptr(10000), floatptr(400)),
	}
}

func TestFilter_EmptyFilterKeepsEverything(t *testing.T) {
	records := sampleRecords()
	assert.Equal(t, records, Filter(records, domain.RecordFilter{}))
}

func TestFilter_EmptyFilterReturnsACopy(t *testing.T) {
	records := sampleRecords()
	filtered := Filter(records, domain.RecordFilter{})
	filtered[0] = domain.CanonicalRecord{}

	assert.Equal(t, "1", *records[0].DocumentNumber)
}

func TestParseFilter_SentinelsYieldEmptyFilter(t *testing.T) {
	filter, err := ParseFilter(url.Values{
		"from":        {""},
		"origin":      {"all"},
		"destination": {"ALL"},
	})
	require.NoError(t, err)
	assert.True(t, filter.IsEmpty())

	filter, err = ParseFilter(url.Values{"carrier": {"TRANSPORTADORA 1"}})
	require.NoError(t, err)
	assert.False(t, filter.IsEmpty())
}

func TestFilter_DestinationIsExactAndOrderPreserving(t *testing.T) {
	filtered := Filter(sampleRecords(), domain.RecordFilter{DestinationCity: strptr("CAMPINAS")})
	assert.Equal(t, []string{"1", "3", "5"}, documentNumbers(filtered))

	assert.Empty(t, Filter(sampleRecords(), domain.RecordFilter{DestinationCity: strptr("campinas")}))
	assert.Empty(t, Filter(sampleRecords(), domain.RecordFilter{DestinationCity: strptr("CAMPINAS ")}))
}

func TestFilter_CriteriaAreConjunctive(t *testing.T) {
	filtered := Filter(sampleRecords(), domain.RecordFilter{
		OriginCity:      strptr("PAULINIA"),
		DestinationCity: strptr("CAMPINAS"),
		Product:         strptr("GASOLINA"),
	})
	assert.Equal(t, []string{"5"}, documentNumbers(filtered))
}

func TestFilter_DateBoundsAreInclusive(t *testing.T) {
	filtered := Filter(sampleRecords(), domain.RecordFilter{From: day("2024-01-20"), To: day("2024-02-01")})
	assert.Equal(t, []string{"2", "3"}, documentNumbers(filtered))
}

func TestFilter_DateBoundExcludesUndatedRecords(t *testing.T) {
	filtered := Filter(sampleRecords(), domain.RecordFilter{From: day("2000-01-01")})
	assert.NotContains(t, documentNumbers(filtered), "4")
	assert.Len(t, filtered, 4)
}

func TestFilter_NilFieldNeverMatchesSetCriterion(t *testing.T) {
	filtered := Filter(sampleRecords(), domain.RecordFilter{OriginCity: strptr("")})
	assert.Empty(t, filtered)
}

func TestParseFilter(t *testing.T) {
	filter, err := ParseFilter(url.Values{
		"from":        {"2024-01-01"},
		"to":          {"2024-01-31"},
		"origin":      {"All"},
		"destination": {"CAMPINAS"},
		"product":     {""},
	})
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-01"), filter.From)
	assert.Equal(t, day("2024-01-31"), filter.To)
	assert.Nil(t, filter.OriginCity)
	assert.Equal(t, "CAMPINAS", *filter.DestinationCity)
	assert.Nil(t, filter.Product)
	assert.Nil(t, filter.Carrier)
}

func TestParseFilter_RejectsBadDates(t *testing.T) {
	_, err := ParseFilter(url.Values{"from": {"15/03/2024"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = ParseFilter(url.Values{"from": {"2024-02-01"}, "to": {"2024-01-01"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
