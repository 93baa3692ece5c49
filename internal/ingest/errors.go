package ingest

import "fmt"

// SchemaError means the live database shape contradicts the catalog.
// Schema drift across runs is unsupported, so this is fatal at startup.
type SchemaError string

func (e SchemaError) Error() string { return string(e) }

func schemaErrorf(format string, args ...any) SchemaError {
	return SchemaError(fmt.Sprintf(format, args...))
}

// StorageError marks a database failure, as opposed to bad input. The
// pipeline fails the current file on one and aborts the whole run when
// they hit enough files in a row.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}
