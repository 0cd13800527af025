package server

import (
	"crypto/subtle"
	"net/http"
)

func basicAuth(user, password string) func(http.Handler) http.Handler {
	userBytes := []byte(user)
	passwordBytes := []byte(password)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			reqUser, reqPassword, _ := req.BasicAuth()

			ok := subtle.ConstantTimeCompare(userBytes, []byte(reqUser)) +
				subtle.ConstantTimeCompare(passwordBytes, []byte(reqPassword))
			if ok == 2 {
				next.ServeHTTP(w, req)

				return
			}

			w.Header().Set("WWW-Authenticate", `Basic realm="geoipd"`)
			sendError(w, errAuthorizationInvalid)
		})
	}
}
