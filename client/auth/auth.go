// Package auth builds Authorization header values and pre-flight hooks
// that attach credentials to outgoing requests.
package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/adamwoolhether/apiclient/client/request"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// HeaderName is the header credentials are sent in.
const HeaderName = "Authorization"

// Bearer returns a bearer-token Authorization value.
func Bearer(token string) string {
	return "Bearer " + token
}

// Basic returns a basic-auth Authorization value.
func Basic(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

// JWTSigner mints a short-lived HMAC-signed token for every request it is
// hooked into. The token's issued-at time is the moment the request is
// validated, so servers can reject replays.
type JWTSigner struct {
	Key      []byte
	Issuer   string
	Subject  string
	Audience []string
	TTL      time.Duration

	// Method defaults to HS256.
	Method *jwt.SigningMethodHMAC

	now func() time.Time
}

// Sign returns a token valid from now for TTL, defaulting to one minute.
func (s JWTSigner) Sign(now time.Time) (string, error) {
	if len(s.Key) == 0 {
		return "", errors.New("jwt signer: key is required")
	}

	method := s.Method
	if method == nil {
		method = jwt.SigningMethodHS256
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.Issuer,
		Subject:   s.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if len(s.Audience) > 0 {
		claims.Audience = s.Audience
	}

	signed, err := jwt.NewWithClaims(method, claims).SignedString(s.Key)
	if err != nil {
		return "", fmt.Errorf("jwt signer: sign token: %w", err)
	}

	return signed, nil
}

// Hook returns a validation hook that sets a freshly signed bearer token on
// each request that does not already carry an Authorization header.
func (s JWTSigner) Hook() func(ctx context.Context, d *request.Descriptor) error {
	now := s.now
	if now == nil {
		now = time.Now
	}

	return func(_ context.Context, d *request.Descriptor) error {
		if d.Headers.Get(HeaderName) != "" {
			return nil
		}

		token, err := s.Sign(now())
		if err != nil {
			return err
		}

		if d.Headers == nil {
			d.Headers = make(http.Header)
		}
		d.Headers.Set(HeaderName, Bearer(token))

		return nil
	}
}
