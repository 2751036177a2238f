package cte

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string {
	return &s
}

func TestNormalize_LitreSynonyms(t *testing.T) {
	for _, unit := range []string{"Lts", "LTS", "lt", " Litro ", "LITRO"} {
		record := Normalize(ExtractedFields{CargoUnit: strptr(unit), CargoQuantity: strptr("150.5")})
		require.NotNil(t, record.VolumeLiters, "unit %q", unit)
		assert.Equal(t, 150.5, *record.VolumeLiters)
	}
}

func TestNormalize_NonLitreUnitDropsQuantity(t *testing.T) {
	for _, unit := range []*string{strptr("KG"), strptr("LITROS"), strptr("M3"), strptr(""), nil} {
		record := Normalize(ExtractedFields{CargoUnit: unit, CargoQuantity: strptr("20")})
		assert.Nil(t, record.VolumeLiters)
	}
}

func TestNormalize_UnparsableQuantityIsAbsent(t *testing.T) {
	for _, quantity := range []*string{strptr("abc"), strptr(""), strptr("1,5"), strptr("NaN"), strptr("Inf"), nil} {
		record := Normalize(ExtractedFields{CargoUnit: strptr("LT"), CargoQuantity: quantity})
		assert.Nil(t, record.VolumeLiters)
	}
}

func TestNormalize_FreightValue(t *testing.T) {
	record := Normalize(ExtractedFields{FreightValue: strptr(" 2500.75 ")})
	require.NotNil(t, record.FreightValue)
	assert.Equal(t, 2500.75, *record.FreightValue)

	zero := Normalize(ExtractedFields{FreightValue: strptr("0")})
	require.NotNil(t, zero.FreightValue, "zero is a value, not an absence")
	assert.Equal(t, 0.0, *zero.FreightValue)

	assert.Nil(t, Normalize(ExtractedFields{FreightValue: strptr("R$ 10")}).FreightValue)
	assert.Nil(t, Normalize(ExtractedFields{}).FreightValue)
}

func TestNormalize_IssueDate(t *testing.T) {
	record := Normalize(ExtractedFields{EmittedAt: strptr("2024-03-15T08:30:00-03:00")})
	require.NotNil(t, record.IssueDate)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), *record.IssueDate)
	assert.Equal(t, "March", record.IssueMonth)

	dateOnly := Normalize(ExtractedFields{EmittedAt: strptr("2023-12-01")})
	require.NotNil(t, dateOnly.IssueDate)
	assert.Equal(t, "December", dateOnly.IssueMonth)
}

func TestNormalize_MalformedDates(t *testing.T) {
	for _, raw := range []*string{
		strptr("15/03/2024"),
		strptr("2024-13-01T00:00:00"),
		strptr("2024-03"),
		strptr("abcd-ef-gh"),
		strptr(""),
		nil,
	} {
		record := Normalize(ExtractedFields{EmittedAt: raw})
		assert.Nil(t, record.IssueDate)
		assert.Equal(t, "", record.IssueMonth)
	}
}

func TestNormalize_PassesTextThrough(t *testing.T) {
	fields := ExtractedFields{
		DocumentNumber:  strptr("0001"),
		Carrier:         strptr("  Carrier  "),
		Product:         strptr("GASOLINA"),
		OriginCity:      strptr("A"),
		DestinationCity: strptr("B"),
	}
	record := Normalize(fields)
	assert.Equal(t, "0001", *record.DocumentNumber)
	assert.Equal(t, "  Carrier  ", *record.Carrier)
	assert.Equal(t, "GASOLINA", *record.Product)
	assert.Equal(t, "A", *record.OriginCity)
	assert.Equal(t, "B", *record.DestinationCity)
}
