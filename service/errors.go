package service

import (
	"context"
	"errors"
	"fmt"
	neturl "net/url"
	"syscall"

	"google.golang.org/api/googleapi"
)

type errTmpIf interface{ Temporary() bool }
type errTmp struct{ error }

func (t errTmp) Temporary() bool    { return true }
func (t *errTmp) Unwrap() error     { return t.error }
func MakeTemporary(err error) error { return &errTmp{err} }

type errFatalIf interface{ Fatal() bool }
type errFatal struct{ error }

func (t errFatal) Fatal() bool    { return true }
func (t *errFatal) Unwrap() error { return t.error }
func MakeFatal(err error) error   { return &errFatal{err} }

// Temporary inspects the error trace and returns whether the error is transient
func Temporary(err error) bool {
	var uerr *neturl.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}

	//First override some default syscall temporary statuses
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EIO, syscall.EBUSY, syscall.ECANCELED, syscall.ECONNABORTED, syscall.ECONNRESET, syscall.ENOMEM, syscall.EPIPE:
			return true
		}
	}

	//first check explicitely marked error
	var tmp errTmpIf
	if errors.As(err, &tmp) {
		return tmp.Temporary()
	}
	var gapiError *googleapi.Error
	if errors.As(err, &gapiError) {
		return gapiError.Code == 429 || gapiError.Code == 500
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}

// Fatal inspects the error and returns whether it's a fatal error
func Fatal(err error) bool {
	var tmp errFatalIf
	if errors.As(err, &tmp) {
		return tmp.Fatal()
	}
	return false
}

// ErrInvalidInput is returned when a request or an event is malformed
type ErrInvalidInput struct {
	Field  string
	Reason string
}

func (e ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Reason)
}

// ErrNotFound is returned by the discovery when the prefix does not list any object
type ErrNotFound struct {
	URL string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("No files found at %s", e.URL)
}

// ErrIdentifierExtraction is returned when the id_regex does not match exactly once
type ErrIdentifierExtraction struct {
	Pattern string
	URL     string
	Matches int
}

func (e ErrIdentifierExtraction) Error() string {
	return fmt.Sprintf("id_regex %q must match %s exactly once, got %d matches", e.Pattern, e.URL, e.Matches)
}

// ErrConflictingStrategy is returned when an event holds a granule_id and a pattern-based strategy
type ErrConflictingStrategy struct {
	Fields []string
}

func (e ErrConflictingStrategy) Error() string {
	return fmt.Sprintf("either granule_id or %v must be provided, not both", e.Fields)
}

// ErrMissingStrategy is returned when an event defines no way to derive its datetime
type ErrMissingStrategy struct{}

func (e ErrMissingStrategy) Error() string {
	return "one of granule_id, filename_regex, datetime_regex, single_datetime or start_datetime/end_datetime must be provided"
}

// ErrMetadataDerivation wraps any failure of the metadata collaborators (catalog lookup, raster introspection, datetime parsing)
type ErrMetadataDerivation struct {
	URL string
	Err error
}

func (e ErrMetadataDerivation) Error() string {
	return fmt.Sprintf("failed to derive metadata of %s: %v", e.URL, e.Err)
}

func (e ErrMetadataDerivation) Unwrap() error { return e.Err }

// ErrStorageWrite is returned when an item cannot be offloaded to the storage
type ErrStorageWrite struct {
	URL string
	Err error
}

func (e ErrStorageWrite) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.URL, e.Err)
}

func (e ErrStorageWrite) Unwrap() error { return e.Err }

// Validation returns whether the error comes from a malformed input that will never succeed
func Validation(err error) bool {
	var (
		invalid    ErrInvalidInput
		conflict   ErrConflictingStrategy
		missing    ErrMissingStrategy
		extraction ErrIdentifierExtraction
	)
	return errors.As(err, &invalid) || errors.As(err, &conflict) || errors.As(err, &missing) || errors.As(err, &extraction)
}
