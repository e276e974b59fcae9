package contract

import "errors"

var (
	ErrModelInvoke          = errors.New("model invoke failed")
	ErrSchemaViolation      = errors.New("model response violates schema")
	ErrValidation           = errors.New("validation failed")
	ErrInvalidToolArguments = errors.New("invalid tool arguments")
	ErrToolUnavailable      = errors.New("tool is not available")
	ErrStoreWrite           = errors.New("record store write failed")
	ErrCustomerNotFound     = errors.New("customer record not found")
	ErrSessionClosed        = errors.New("call session is closed")
)
