package errors

import "fmt"

// NewReadFailure reports a backup file that could not be read as text.
func NewReadFailure(fileName string, err error) *AppError {
	return Wrap(err, ErrCodeReadFailure, "failed to read backup file").
		WithContext("file", fileName).
		WithUserMessage("The selected file could not be read")
}

// NewParseFailure reports a backup file that is not well-formed XML.
func NewParseFailure(err error) *AppError {
	return Wrap(err, ErrCodeParseFailure, "failed to parse backup XML").
		WithUserMessage("The selected file is not a valid SMS backup")
}

// NewValidationError creates a validation error with field context
func NewValidationError(field, value, message string) *AppError {
	return New(ErrCodeInvalidInput, message).
		WithContext("field", field).
		WithContext("value", value).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeInvalidConfig, message).
		WithContext("config_key", key).
		WithUserMessage("Configuration error")
}

// NewDatabaseError creates a database error with operation context
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithContext("operation", operation).
		WithUserMessage("Database operation failed")
}
