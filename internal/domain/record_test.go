package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlates(t *testing.T) {
	plates := ParsePlates("ABC1234  DEF5678")
	assert.Equal(t, []string{"ABC1234", "DEF5678"}, plates.Tokens)
	assert.Equal(t, PlateProvenanceHeuristic, plates.Provenance)
	assert.Equal(t, "ABC1234 DEF5678", plates.String())

	empty := ParsePlates("")
	assert.Nil(t, empty.Tokens)
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, "", empty.String())
}

func TestPlates_MarshalJSON(t *testing.T) {
	raw, err := json.Marshal(HeuristicPlates([]string{"ABC1234"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"ABC1234","provenance":"heuristic-extracted"}`, string(raw))
}

func TestTagRecords(t *testing.T) {
	number := "7"
	records := []CanonicalRecord{{DocumentNumber: &number}, {}}
	tenant := MustTenantID("cte_acme")

	tagged := TagRecords(tenant, records)
	require.Len(t, tagged, 2)
	assert.Equal(t, tenant, tagged[0].Tenant)
	assert.Equal(t, "7", *tagged[0].Record.DocumentNumber)
	assert.Equal(t, records, UntagRecords(tagged))
}
