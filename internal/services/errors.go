package services

import "errors"

// ErrDataIntegrity marks violations of the upstream cleaning contract:
// missing required fields, non-positive quantities or prices, or a
// customer whose rows disagree on test group or region. Always fatal.
var ErrDataIntegrity = errors.New("data integrity violation")

// ErrJoinMismatch marks a cross-engine key (segment name, month label)
// present in one engine's output but absent in another's. It indicates
// rule-set drift between engines and is fatal at aggregation time.
var ErrJoinMismatch = errors.New("cross-engine join mismatch")
