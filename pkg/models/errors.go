package models

import "errors"

// Types d'erreurs du calcul. Les appelants enveloppent avec fmt.Errorf("...: %w", ...)
// et testent avec errors.Is.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInsufficientData = errors.New("insufficient data")
	ErrNonFiniteData    = errors.New("non-finite data")
)
