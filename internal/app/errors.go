package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
)

var ErrNotFound = ports.ErrNotFound

// Codes stables enregistrés dans le champ errorCode d'une passe.
const (
	CodeCatalogLoad   = "catalog_load"
	CodeCatalogSave   = "catalog_save"
	CodeCanceled      = "canceled"
	CodeInvalidParams = "invalid_params"
	CodeInternal      = "internal"
)

type CodedError struct {
	Code    string
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *CodedError) Unwrap() error { return e.Err }

func invalidParams(format string, args ...any) *CodedError {
	return &CodedError{Code: CodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

// CodeOf renvoie le code à enregistrer pour err. Une annulation l'emporte
// sur le code porté par l'erreur.
func CodeOf(err error) string {
	if errors.Is(err, context.Canceled) {
		return CodeCanceled
	}
	var ce *CodedError
	if errors.As(err, &ce) && ce.Code != "" {
		return ce.Code
	}
	return CodeInternal
}
