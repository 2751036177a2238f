package domain

// Summary holds the headline aggregates of a record set.
type Summary struct {
	Count        int     `json:"count"`
	TotalLiters  float64 `json:"total_liters"`
	TotalFreight float64 `json:"total_freight"`
}

// GroupCount is one row of a group-by tally.
type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// GroupSum is one row of a group-by sum.
type GroupSum struct {
	Key   string  `json:"key"`
	Total float64 `json:"total"`
}

// TenantSummary pairs a tenant with the aggregates of its records.
type TenantSummary struct {
	Tenant  TenantID `json:"tenant"`
	Summary Summary  `json:"summary"`
}
