package ports

import "errors"

// Erreurs partagées par les adaptateurs. L'API HTTP les traduit en 404 / 409.
var (
	// ErrNotFound: série, passe ou notification inconnue.
	ErrNotFound = errors.New("not found")
	// ErrConflict: l'état stocké a changé entre la lecture et l'écriture
	// (passe déjà annulée ou terminée, identifiant déjà pris).
	ErrConflict = errors.New("conflict")
)
