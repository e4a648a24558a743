package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// ValidateSignature checks the webhook's x-signature HMAC against the shared
// secret. An empty secret disables validation (dev mode).
func ValidateSignature(r *http.Request, secret string) bool {
	if secret == "" {
		return true
	}

	xsign := r.Header.Get("x-signature")
	if xsign == "" {
		return false
	}

	// header format: "ts=..., v1=..."
	parts := map[string]string{}
	for _, kv := range strings.Split(xsign, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok {
			return false
		}
		parts[k] = v
	}
	ts, v1 := parts["ts"], parts["v1"]
	if ts == "" || v1 == "" {
		return false
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	requestID := r.Header.Get("x-request-id")
	u := fmt.Sprintf("%s://%s%s", scheme, r.Host, r.URL.RequestURI())
	data := fmt.Sprintf("id:%s;request-id:%s;ts:%s;url:%s", requestID, requestID, ts, u)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	want := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(want), []byte(v1))
}
