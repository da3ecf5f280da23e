package shared

import "fmt"

// DomainError is the base error type for all domain errors
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// Inventory errors

// InventoryError groups failures raised by lot buffers and stage bookkeeping
type InventoryError struct {
	*DomainError
}

func NewInventoryError(message string) *InventoryError {
	return &InventoryError{DomainError: &DomainError{Message: message}}
}

// EmptyBufferError is returned when a pop is attempted on a buffer with no lots
type EmptyBufferError struct {
	*InventoryError
	Buffer string
}

func NewEmptyBufferError(buffer string) *EmptyBufferError {
	return &EmptyBufferError{
		InventoryError: NewInventoryError(fmt.Sprintf("buffer %s is empty", buffer)),
		Buffer:         buffer,
	}
}

// InsufficientQuantityError is returned when a buffer holds less than requested beyond epsilon
type InsufficientQuantityError struct {
	*InventoryError
	Buffer    string
	Requested float64
	Available float64
}

func NewInsufficientQuantityError(buffer string, requested, available float64) *InsufficientQuantityError {
	return &InsufficientQuantityError{
		InventoryError: NewInventoryError(fmt.Sprintf("insufficient quantity in %s: need %.6f, have %.6f", buffer, requested, available)),
		Buffer:         buffer,
		Requested:      requested,
		Available:      available,
	}
}

// Lookup errors

// UnknownRecipeError is returned when the recipe service has no composition under a name
type UnknownRecipeError struct {
	*DomainError
	Recipe string
}

func NewUnknownRecipeError(recipe string) *UnknownRecipeError {
	return &UnknownRecipeError{
		DomainError: NewDomainError(fmt.Sprintf("unknown recipe: %s", recipe)),
		Recipe:      recipe,
	}
}

// UnregisteredCommodityError is returned when a commodity or tracked lot is not known to a facility
type UnregisteredCommodityError struct {
	*DomainError
	Commodity string
}

func NewUnregisteredCommodityError(commodity string) *UnregisteredCommodityError {
	return &UnregisteredCommodityError{
		DomainError: NewDomainError(fmt.Sprintf("unregistered commodity: %s", commodity)),
		Commodity:   commodity,
	}
}

// Configuration error

// ConfigError is returned for malformed or inconsistent facility configuration
type ConfigError struct {
	*DomainError
	Field string
}

func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		DomainError: NewDomainError(fmt.Sprintf("invalid configuration for %s: %s", field, message)),
		Field:       field,
	}
}

// Validation error

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
