package core

import (
	"errors"
	"fmt"
)

// ValidationError reports a missing or malformed field on create/update.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

func IsValidationError(err error) bool {
	var validationError *ValidationError
	return errors.As(err, &validationError)
}

// DependentsError rejects a delete while other records still reference the target.
type DependentsError struct {
	Collection    string
	ID            string
	Subcategories int
	Entries       int
}

func (e *DependentsError) Error() string {
	switch e.Collection {
	case CollectionCategories:
		return fmt.Sprintf("Não é possível excluir: Há %d subcategorias e %d lançamentos associados.", e.Subcategories, e.Entries)
	case CollectionAccounts:
		return fmt.Sprintf("Não é possível excluir: Há %d lançamentos associados a esta conta.", e.Entries)
	default:
		return fmt.Sprintf("Não é possível excluir: Há %d lançamentos associados.", e.Entries)
	}
}

func IsDependentsError(err error) bool {
	var dependentsError *DependentsError
	return errors.As(err, &dependentsError)
}
