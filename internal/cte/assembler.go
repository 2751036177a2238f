package cte

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/rpattn/ctedash/internal/domain"
)

// RawDocument is one uploaded file. Open is called once per extraction and the
// returned reader is always closed before the extraction returns.
type RawDocument struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// BytesDocument wraps an in-memory payload.
func BytesDocument(name string, payload []byte) RawDocument {
	return RawDocument{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		},
	}
}

// FileDocument reads a document from disk.
func FileDocument(path string) RawDocument {
	return RawDocument{
		Name: path,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// DocumentFailure reports a document excluded from a batch.
type DocumentFailure struct {
	Index int
	Name  string
	Err   error
}

func (f DocumentFailure) Error() string {
	return fmt.Sprintf("document %d (%s): %v", f.Index, f.Name, f.Err)
}

func (f DocumentFailure) Unwrap() error {
	return f.Err
}

// Batch is the row-set built from a sequence of documents.
type Batch struct {
	Records  []domain.CanonicalRecord
	Sources  []string
	Failures []DocumentFailure
}

// Extract turns one document into a canonical record.
func Extract(doc RawDocument) (record domain.CanonicalRecord, err error) {
	if doc.Open == nil {
		return domain.CanonicalRecord{}, fmt.Errorf("%w: no content", domain.ErrMalformedDocument)
	}
	rc, err := doc.Open()
	if err != nil {
		return domain.CanonicalRecord{}, fmt.Errorf("%w: unreadable: %v", domain.ErrMalformedDocument, err)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: close: %v", domain.ErrMalformedDocument, closeErr)
		}
	}()

	fields, err := Parse(rc)
	if err != nil {
		return domain.CanonicalRecord{}, err
	}

	record = Normalize(fields)
	record.Plates = ExtractPlates(fields.Observation)
	return record, nil
}

// Assemble extracts every document, one after the other: a document is opened
// only after the previous one has been closed. Failures are collected per
// document and never stop the batch; records keep input order.
func Assemble(docs []RawDocument) Batch {
	batch := Batch{
		Records:  make([]domain.CanonicalRecord, 0, len(docs)),
		Sources:  make([]string, 0, len(docs)),
		Failures: []DocumentFailure{},
	}
	for idx, doc := range docs {
		record, err := Extract(doc)
		if err != nil {
			batch.Failures = append(batch.Failures, DocumentFailure{Index: idx, Name: doc.Name, Err: err})
			continue
		}
		batch.Records = append(batch.Records, record)
		batch.Sources = append(batch.Sources, doc.Name)
	}
	return batch
}
