package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/oakmart/pricing-engine/internal/auth"
	"github.com/oakmart/pricing-engine/pkg/httpmiddleware"
)

// apiKeyHeader carries the client's API key.
const apiKeyHeader = "X-Api-Key"

// APIKeyAuth authenticates requests via HMAC-SHA256 hashed API keys: the
// provided key is hashed with the pepper, looked up in the repository, and
// compared in constant time to prevent timing attacks.
func APIKeyAuth(apikeys auth.Repository, pepper []byte) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(apiKeyHeader)
			if key == "" {
				writeError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			hash := mac.Sum(nil)

			info, err := apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}

			// Guard against a stale or wrong row from the repository: the
			// stored hash must match what we computed, compared in constant
			// time.
			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
				writeError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HashAPIKey computes the stored form of an API key. Provisioning tooling
// uses it so the database only ever sees hashes.
func HashAPIKey(key string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
