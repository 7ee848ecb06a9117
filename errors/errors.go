// Package errors defines the error taxonomy used across corecache: kinds,
// not Go types, each carrying a stable code and structured context so a
// caller can branch on category without string matching.
//
// SPDX-License-Identifier: MPL-2.0
package errors

import (
	goerrors "errors"
	"fmt"

	"github.com/agilira/go-errors"
)

// Error codes for corecache operations.
const (
	// Configuration errors — surfaced at Builder.Build time, never retried.
	ErrCodeInvalidMaxSize     errors.ErrorCode = "CORECACHE_INVALID_MAX_SIZE"
	ErrCodeInvalidMaxWeight   errors.ErrorCode = "CORECACHE_INVALID_MAX_WEIGHT"
	ErrCodeMissingWeigher     errors.ErrorCode = "CORECACHE_MISSING_WEIGHER"
	ErrCodeInvalidDuration    errors.ErrorCode = "CORECACHE_INVALID_DURATION"
	ErrCodeContradictoryBound errors.ErrorCode = "CORECACHE_CONTRADICTORY_BOUND"
	ErrCodeInvalidConcurrency errors.ErrorCode = "CORECACHE_INVALID_CONCURRENCY"

	// Operation errors (synchronous, surfaced to the calling goroutine).
	ErrCodeCapacityExceeded errors.ErrorCode = "CORECACHE_CAPACITY_EXCEEDED"
	ErrCodePutAllPartial    errors.ErrorCode = "CORECACHE_PUT_ALL_PARTIAL"
	ErrCodeNilKey           errors.ErrorCode = "CORECACHE_NIL_KEY"
	ErrCodeNilValue         errors.ErrorCode = "CORECACHE_NIL_VALUE"
	ErrCodeClosed           errors.ErrorCode = "CORECACHE_CLOSED"

	// Loader errors (C6 LoaderCoordinator).
	ErrCodeLoadFailed    errors.ErrorCode = "CORECACHE_LOAD_FAILED"
	ErrCodeLoadPanicked  errors.ErrorCode = "CORECACHE_LOAD_PANICKED"
	ErrCodeLoadTimeout   errors.ErrorCode = "CORECACHE_LOAD_TIMEOUT"
	ErrCodeNoLoader      errors.ErrorCode = "CORECACHE_NO_LOADER"
	ErrCodeInvalidResult errors.ErrorCode = "CORECACHE_INVALID_LOAD_RESULT"
)

// =============================================================================
// CONFIGURATION ERRORS
// =============================================================================

// NewInvalidMaxSize reports a non-positive maximumSize.
func NewInvalidMaxSize(size int) error {
	return errors.NewWithContext(ErrCodeInvalidMaxSize, "maximumSize must be > 0", map[string]interface{}{
		"provided": size,
	})
}

// NewInvalidMaxWeight reports a non-positive maximumWeight.
func NewInvalidMaxWeight(weight int64) error {
	return errors.NewWithContext(ErrCodeInvalidMaxWeight, "maximumWeight must be > 0", map[string]interface{}{
		"provided": weight,
	})
}

// NewMissingWeigher reports weight-based eviction requested without a weigher.
func NewMissingWeigher() error {
	return errors.New(ErrCodeMissingWeigher, "maximumWeight is set but no Weigher was provided")
}

// NewInvalidDuration reports a negative duration for a TTL/refresh option.
func NewInvalidDuration(field string, d interface{}) error {
	return errors.NewWithContext(ErrCodeInvalidDuration, "duration must be non-negative", map[string]interface{}{
		"field":    field,
		"provided": d,
	})
}

// NewContradictoryBound reports contradictory Builder options:
// refreshAfterWrite was set without a loader to perform the refresh.
func NewContradictoryBound() error {
	return errors.New(ErrCodeContradictoryBound, "refreshAfterWrite was set without a loader to refresh entries")
}

// NewInvalidConcurrency reports a negative concurrency level hint.
func NewInvalidConcurrency(level int) error {
	return errors.NewWithContext(ErrCodeInvalidConcurrency, "concurrencyLevel must not be negative", map[string]interface{}{
		"provided": level,
	})
}

// =============================================================================
// OPERATION ERRORS
// =============================================================================

// NewCapacityExceeded reports that a single entry's weight exceeds the
// weight bound of the shard its key maps to. That bound is maximumWeight
// divided across the shards (rounded up), so with more than one shard an
// entry lighter than maximumWeight can still be rejected.
func NewCapacityExceeded(key interface{}, weight, maxWeight int64) error {
	return errors.NewWithContext(ErrCodeCapacityExceeded, "entry weight exceeds the shard's weight bound", map[string]interface{}{
		"key":          fmt.Sprintf("%v", key),
		"weight":       weight,
		"max_weight":   maxWeight,
		"single_entry": true,
	})
}

// NewPutAllPartial reports that putAll could not admit every entry.
func NewPutAllPartial(rejected []interface{}) error {
	return errors.NewWithContext(ErrCodePutAllPartial, "putAll could not admit all entries", map[string]interface{}{
		"rejected_count": len(rejected),
		"rejected_keys":  rejected,
	}).AsRetryable()
}

// NewNilKey reports a nil/zero key passed where one is required.
func NewNilKey(operation string) error {
	return errors.NewWithField(ErrCodeNilKey, "key must not be nil", "operation", operation)
}

// NewClosed reports an operation attempted on a closed cache.
func NewClosed(operation string) error {
	return errors.NewWithField(ErrCodeClosed, "cache is closed", "operation", operation)
}

// =============================================================================
// LOADER ERRORS
// =============================================================================

// NewLoadFailed wraps a loader-returned error with the key it failed for.
func NewLoadFailed(key interface{}, cause error) error {
	return errors.Wrap(cause, ErrCodeLoadFailed, "loader returned an error").
		WithContext("key", fmt.Sprintf("%v", key)).
		AsRetryable()
}

// NewLoadPanicked wraps a recovered loader panic.
func NewLoadPanicked(key interface{}, recovered interface{}) error {
	return errors.NewWithContext(ErrCodeLoadPanicked, "loader panicked", map[string]interface{}{
		"key":   fmt.Sprintf("%v", key),
		"panic": fmt.Sprintf("%v", recovered),
	}).WithSeverity("critical")
}

// NewLoadTimeout reports an async wait that exceeded its deadline. The
// in-flight load is not aborted; subsequent callers may still observe it.
func NewLoadTimeout(key interface{}, timeout interface{}) error {
	return errors.NewWithContext(ErrCodeLoadTimeout, "load wait exceeded deadline", map[string]interface{}{
		"key":     fmt.Sprintf("%v", key),
		"timeout": timeout,
	}).AsRetryable()
}

// NewNoLoader reports getOrLoad called without a loader configured.
func NewNoLoader(key interface{}) error {
	return errors.NewWithField(ErrCodeNoLoader, "no loader configured", "key", fmt.Sprintf("%v", key))
}

// NewInvalidResult reports a loader returning an invalid (zero-value, when
// disallowed) result.
func NewInvalidResult(key interface{}) error {
	return errors.NewWithField(ErrCodeInvalidResult, "loader returned an invalid value", "key", fmt.Sprintf("%v", key))
}

// =============================================================================
// PREDICATES
// =============================================================================

// IsConfigurationError reports whether err is a Builder-time configuration error.
func IsConfigurationError(err error) bool {
	return hasAnyCode(err,
		ErrCodeInvalidMaxSize, ErrCodeInvalidMaxWeight, ErrCodeMissingWeigher,
		ErrCodeInvalidDuration, ErrCodeContradictoryBound, ErrCodeInvalidConcurrency)
}

// IsCapacityError reports whether err concerns weight/size admission.
func IsCapacityError(err error) bool {
	return hasAnyCode(err, ErrCodeCapacityExceeded, ErrCodePutAllPartial)
}

// IsLoadError reports whether err originated from the loader coordinator.
func IsLoadError(err error) bool {
	return hasAnyCode(err, ErrCodeLoadFailed, ErrCodeLoadPanicked, ErrCodeNoLoader, ErrCodeInvalidResult)
}

// IsTimeoutError reports whether err is an async wait timeout.
func IsTimeoutError(err error) bool {
	return hasAnyCode(err, ErrCodeLoadTimeout)
}

// IsOperationError reports whether err is a runtime invariant violation
// (nil key, operation on a closed cache).
func IsOperationError(err error) bool {
	return hasAnyCode(err, ErrCodeNilKey, ErrCodeNilValue, ErrCodeClosed)
}

// IsRetryable reports whether err declares itself retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// Code extracts the stable error code from err, or "" if err carries none.
func Code(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

func hasAnyCode(err error, codes ...errors.ErrorCode) bool {
	if err == nil {
		return false
	}
	for _, c := range codes {
		if errors.HasCode(err, c) {
			return true
		}
	}
	return false
}
