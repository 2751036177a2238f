package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// PlateProvenance tells consumers how much to trust a plate list.
type PlateProvenance string

const (
	// PlateProvenanceHeuristic marks tokens mined from free text by pattern
	// matching. They may include false positives and miss real plates.
	PlateProvenanceHeuristic PlateProvenance = "heuristic-extracted"
	// PlateProvenanceValidated is reserved for plates checked against a registry.
	PlateProvenanceValidated PlateProvenance = "validated"
)

// Plates is an ordered list of vehicle-plate tokens together with their provenance.
type Plates struct {
	Tokens     []string
	Provenance PlateProvenance
}

// HeuristicPlates wraps tokens produced by text mining.
func HeuristicPlates(tokens []string) Plates {
	if len(tokens) == 0 {
		tokens = nil
	}
	return Plates{Tokens: tokens, Provenance: PlateProvenanceHeuristic}
}

// ParsePlates rebuilds a heuristic plate list from its persisted, space-joined form.
func ParsePlates(joined string) Plates {
	return HeuristicPlates(strings.Fields(joined))
}

// String joins the tokens with single spaces, the persisted representation.
func (p Plates) String() string {
	return strings.Join(p.Tokens, " ")
}

// IsEmpty reports whether no plate was found.
func (p Plates) IsEmpty() bool {
	return len(p.Tokens) == 0
}

func (p Plates) MarshalJSON() ([]byte, error) {
	provenance := p.Provenance
	if provenance == "" {
		provenance = PlateProvenanceHeuristic
	}
	return json.Marshal(struct {
		Value      string          `json:"value"`
		Provenance PlateProvenance `json:"provenance"`
	}{Value: p.String(), Provenance: provenance})
}

func (p *Plates) UnmarshalJSON(data []byte) error {
	var wire struct {
		Value      string          `json:"value"`
		Provenance PlateProvenance `json:"provenance"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*p = ParsePlates(wire.Value)
	if wire.Provenance != "" {
		p.Provenance = wire.Provenance
	}
	return nil
}

// CanonicalRecord is the normalized output of one CT-e document. Field order
// matches the tenant table and export column order. Nil pointers mean the value
// was absent or could not be parsed; they are never replaced by zero values.
type CanonicalRecord struct {
	IssueDate       *time.Time `json:"issue_date"`
	IssueMonth      string     `json:"issue_month"`
	DocumentNumber  *string    `json:"document_number"`
	Carrier         *string    `json:"carrier"`
	Plates          Plates     `json:"plates"`
	Product         *string    `json:"product"`
	OriginCity      *string    `json:"origin_city"`
	DestinationCity *string    `json:"destination_city"`
	VolumeLiters    *float64   `json:"volume_liters"`
	FreightValue    *float64   `json:"freight_value"`
}

// LedgerRecord is a CanonicalRecord tagged with the tenant that ingested it.
type LedgerRecord struct {
	Tenant TenantID        `json:"tenant"`
	Record CanonicalRecord `json:"record"`
}

// TagRecords attaches tenant identity to each record, preserving order.
func TagRecords(tenant TenantID, records []CanonicalRecord) []LedgerRecord {
	tagged := make([]LedgerRecord, len(records))
	for i, record := range records {
		tagged[i] = LedgerRecord{Tenant: tenant, Record: record}
	}
	return tagged
}

// UntagRecords strips tenant identity, preserving order.
func UntagRecords(entries []LedgerRecord) []CanonicalRecord {
	records := make([]CanonicalRecord, len(entries))
	for i, entry := range entries {
		records[i] = entry.Record
	}
	return records
}
