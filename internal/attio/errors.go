package attio

import "errors"

var (
	// ErrDuplicateExternalObject is returned by NewRegistry when two adapters claim one Attio object.
	ErrDuplicateExternalObject = errors.New("duplicate external object")
	// ErrExternalIDConflict is returned when an inbound record would rebind a local row
	// that is already correlated with a different Attio record.
	ErrExternalIDConflict = errors.New("local record already bound to a different external id")
	// ErrMissingRequiredValue is returned when an inbound create lacks a value for a NOT NULL column.
	ErrMissingRequiredValue = errors.New("missing required value")

	errOutboundApply = errors.New("apply is only available while reconciling an inbound event")
)
