package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/saeed-rahimi/ss/apperrors"
	"github.com/saeed-rahimi/ss/utils"
	"gorm.io/gorm"
)

// isDuplicateKeyError matches unique constraint violations from any driver
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}

// notFoundOr maps gorm.ErrRecordNotFound to a NotFound error with message,
// and anything else to an internal error.
func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(message)
	}
	return apperrors.Internal(err)
}

// validateInput runs binding-tag validation outside the HTTP layer
func validateInput(input any) error {
	if err := utils.ValidateStruct(input); err != nil {
		return apperrors.Validation(utils.ValidationMessage(err))
	}
	return nil
}

// ParseID rejects identifiers that are not UUIDs
func ParseID(field, value string) (string, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return "", apperrors.Cast(field, value)
	}
	return id.String(), nil
}
