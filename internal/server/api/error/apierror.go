// Package apierror builds the problem+json errors returned by feed API handlers.
package apierror

import (
	"errors"

	"github.com/Alia5/ds4dsu/apitypes"
)

func ErrBadRequest(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 400, Title: "Bad Request", Detail: detail}
}
func ErrUnauthorized(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 401, Title: "Unauthorized", Detail: detail}
}
func ErrNotFound(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 404, Title: "Not Found", Detail: detail}
}
func ErrConflict(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 409, Title: "Conflict", Detail: detail}
}
func ErrInternal(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 500, Title: "Internal Server Error", Detail: detail}
}

// WrapError normalizes any error into apitypes.ApiError. Wrapped ApiErrors
// are found with errors.As; everything else becomes a 500.
func WrapError(err error) apitypes.ApiError {
	var ae apitypes.ApiError
	if errors.As(err, &ae) {
		return ae
	}
	var pae *apitypes.ApiError
	if errors.As(err, &pae) && pae != nil {
		return *pae
	}
	return ErrInternal(err.Error())
}
