// Package cte extracts canonical freight records from CT-e XML documents.
package cte

// Namespace is the XML namespace of the fiscal CT-e schema.
const Namespace = "http://www.portalfiscal.inf.br/cte"

// ExtractedFields holds the raw text of every field read from one document.
// A nil pointer means the node was not present; a present but empty node
// yields a pointer to "".
type ExtractedFields struct {
	DocumentNumber  *string
	EmittedAt       *string
	OriginCity      *string
	DestinationCity *string
	Carrier         *string
	Product         *string
	CargoUnit       *string
	CargoQuantity   *string
	FreightValue    *string
	Observation     *string
}

// fieldPaths maps each field to its lookup path. The first step is searched at
// any depth, the remaining steps are direct children.
var fieldPaths = []struct {
	path []string
	dest func(*ExtractedFields) **string
}{
	{[]string{"ide", "nCT"}, func(f *ExtractedFields) **string { return &f.DocumentNumber }},
	{[]string{"ide", "dhEmi"}, func(f *ExtractedFields) **string { return &f.EmittedAt }},
	{[]string{"ide", "xMunIni"}, func(f *ExtractedFields) **string { return &f.OriginCity }},
	{[]string{"ide", "xMunFim"}, func(f *ExtractedFields) **string { return &f.DestinationCity }},
	{[]string{"emit", "xNome"}, func(f *ExtractedFields) **string { return &f.Carrier }},
	{[]string{"infCarga", "proPred"}, func(f *ExtractedFields) **string { return &f.Product }},
	{[]string{"infCarga", "xOutCat"}, func(f *ExtractedFields) **string { return &f.CargoUnit }},
	{[]string{"infCarga", "infQ", "qCarga"}, func(f *ExtractedFields) **string { return &f.CargoQuantity }},
	{[]string{"vPrest", "vTPrest"}, func(f *ExtractedFields) **string { return &f.FreightValue }},
	{[]string{"compl", "xObs"}, func(f *ExtractedFields) **string { return &f.Observation }},
}
