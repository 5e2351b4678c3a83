package shield

import "net/http"

// MaxJSONBody returns middleware that limits the request body size for
// JSON POST/PUT requests. Other methods are passed through. The limit is
// enforced lazily by http.MaxBytesReader, so handlers see a
// *http.MaxBytesError from json.Decode when the cap is exceeded.
func MaxJSONBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPut {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
