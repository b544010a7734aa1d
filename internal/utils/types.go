package util

import (
	"errors"
	"fmt"
	"math"
)

// BlockID identifies a fixed-size block in the backing file
type BlockID uint32

// PageID is the identifier of a page; it is the id of the block that backs it
type PageID = BlockID

// FrameID is an index into the buffer pool, in [0, pool size)
type FrameID = int

// BlockSize represents the standard block (and page) size (4KB)
const BlockSize = 4096

// MaxBlockID is the last identifier the allocator can hand out
const MaxBlockID = BlockID(math.MaxUint32)

// ErrorType represents different types of database errors
type ErrorType int

const (
	ErrTypeNotFound ErrorType = iota
	ErrTypeInvalidKey
	ErrTypeInvalidValue
	ErrTypeTransactionAborted
	ErrTypeIOError
	ErrTypeCorruption
)

func (t ErrorType) String() string {
	switch t {
	case ErrTypeNotFound:
		return "not found"
	case ErrTypeInvalidKey:
		return "invalid key"
	case ErrTypeInvalidValue:
		return "invalid value"
	case ErrTypeTransactionAborted:
		return "transaction aborted"
	case ErrTypeIOError:
		return "io"
	case ErrTypeCorruption:
		return "corruption"
	}
	return fmt.Sprintf("ErrorType(%d)", int(t))
}

// DatabaseError represents a database-specific error
type DatabaseError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *DatabaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("PageDB Error [%s]: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("PageDB Error [%s]: %s", e.Type, e.Message)
}

func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// With attaches a context value and returns the same error
func (e *DatabaseError) With(key string, value interface{}) *DatabaseError {
	e.Context[key] = value
	return e
}

// NewDatabaseError creates a new database error
func NewDatabaseError(errType ErrorType, message string, cause error) *DatabaseError {
	return &DatabaseError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// IsIOError reports whether err carries a DatabaseError of type ErrTypeIOError
func IsIOError(err error) bool {
	var dbErr *DatabaseError
	return errors.As(err, &dbErr) && dbErr.Type == ErrTypeIOError
}
