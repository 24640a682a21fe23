package gateway

import (
	"errors"
	"fmt"
)

// BusinessError is a gateway response with success=false. Mensaje is
// server-authored and must be surfaced to the user verbatim.
type BusinessError struct {
	Operacion string
	Mensaje   string
}

func (e *BusinessError) Error() string {
	return e.Mensaje
}

// TransportError is a network failure, timeout or malformed response. The
// caller shows a generic connectivity message and preserves local state so
// the user can retry.
type TransportError struct {
	Operacion string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operacion, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// EsErrorNegocio reports whether err carries a server-authored rejection.
func EsErrorNegocio(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// EsErrorTransporte reports whether err is a connectivity failure.
func EsErrorTransporte(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
