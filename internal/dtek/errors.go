package dtek

import (
	"errors"
	"fmt"
)

var (
	// ErrAddressFieldNotFound means a form input never became interactable.
	ErrAddressFieldNotFound = errors.New("address field not found")
	// ErrAddressNotResolved means autocomplete produced no usable value for a field.
	ErrAddressNotResolved = errors.New("address not resolved")
	// ErrResultsNotRendered means the status block never appeared after resolution.
	ErrResultsNotRendered = errors.New("outage results not rendered")
	// ErrExtractionDegraded marks a secondary fragment that could not be read.
	// It never aborts a session.
	ErrExtractionDegraded = errors.New("extraction degraded")
)

// Field names one input of the address form.
type Field string

const (
	FieldCity   Field = "city"
	FieldStreet Field = "street"
	FieldHouse  Field = "house"
)

// AddressFieldNotFoundError is returned when the input for Field could not be located.
type AddressFieldNotFoundError struct {
	Field Field
	Err   error
}

func (e *AddressFieldNotFoundError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("address field %q not found", e.Field)
	}
	return fmt.Sprintf("address field %q not found: %v", e.Field, e.Err)
}

func (e *AddressFieldNotFoundError) Is(target error) bool { return target == ErrAddressFieldNotFound }

func (e *AddressFieldNotFoundError) Unwrap() error { return e.Err }

// AddressNotResolvedError is returned when Field could not be committed
// through its suggestion list.
type AddressNotResolvedError struct {
	Field Field
	Err   error
}

func (e *AddressNotResolvedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("could not resolve %s", e.Field)
	}
	return fmt.Sprintf("could not resolve %s: %v", e.Field, e.Err)
}

func (e *AddressNotResolvedError) Is(target error) bool { return target == ErrAddressNotResolved }

func (e *AddressNotResolvedError) Unwrap() error { return e.Err }

// IsAddressError reports whether err was caused by the address itself rather
// than by the provider page or the browser. A missing form field means the
// page changed, so it is not an address error.
func IsAddressError(err error) bool {
	return errors.Is(err, ErrAddressNotResolved)
}
