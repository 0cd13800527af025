package server

import (
	"encoding/json"
	"net/http"
)

// apiError is the error envelope of the GeoIP2 web service: a machine
// readable code plus a human readable message.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"error"`

	status int
}

func (a *apiError) withMessage(message string) *apiError {
	rv := *a
	rv.Message = message

	return &rv
}

var (
	errIPAddressInvalid = &apiError{
		Code:    "IP_ADDRESS_INVALID",
		Message: "the value is not a valid ip address",
		status:  http.StatusBadRequest,
	}
	errIPAddressRequired = &apiError{
		Code:    "IP_ADDRESS_REQUIRED",
		Message: "you have not supplied an ip address",
		status:  http.StatusBadRequest,
	}
	errIPAddressNotFound = &apiError{
		Code:    "IP_ADDRESS_NOT_FOUND",
		Message: "the supplied ip address is not in the database",
		status:  http.StatusNotFound,
	}
	errIPAddressReserved = &apiError{
		Code:    "IP_ADDRESS_RESERVED",
		Message: "the supplied ip address belongs to a reserved or private range",
		status:  http.StatusBadRequest,
	}
	errAuthorizationInvalid = &apiError{
		Code:    "AUTHORIZATION_INVALID",
		Message: "invalid user id or license key",
		status:  http.StatusUnauthorized,
	}
	errDatabaseError = &apiError{
		Code:    "DATABASE_ERROR",
		Message: "cannot query the database",
		status:  http.StatusInternalServerError,
	}
)

func sendError(w http.ResponseWriter, e *apiError) {
	w.WriteHeader(e.status)
	encodeJSON(w, e)
}

func encodeJSON(w http.ResponseWriter, data interface{}) {
	encoder := json.NewEncoder(w)

	encoder.SetEscapeHTML(false)
	encoder.Encode(data) // nolint: errcheck
}
