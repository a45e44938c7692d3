package auth

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/adamwoolhether/apiclient/client/request"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
)

func TestBasic(t *testing.T) {
	if got, exp := Basic("Aladdin", "open sesame"), "Basic QWxhZGRpbjpvcGVuIHNlc2FtZQ=="; got != exp {
		t.Errorf("exp %q, got %q", exp, got)
	}
}

func TestJWTSigner_Hook(t *testing.T) {
	issued := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	key := []byte("secret")

	s := JWTSigner{
		Key:      key,
		Issuer:   "apiclient",
		Subject:  "svc-a",
		Audience: []string{"api"},
		TTL:      30 * time.Second,
		now:      func() time.Time { return issued },
	}

	d := &request.Descriptor{}
	if err := s.Hook()(t.Context(), d); err != nil {
		t.Fatalf("running hook: %v", err)
	}

	raw, ok := strings.CutPrefix(d.Headers.Get(HeaderName), "Bearer ")
	if !ok {
		t.Fatalf("exp bearer header, got %q", d.Headers.Get(HeaderName))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return issued.Add(time.Second) }),
		jwt.WithAudience("api"),
		jwt.WithIssuer("apiclient"),
	)
	if err != nil {
		t.Fatalf("parsing token: %v", err)
	}

	if claims.Subject != "svc-a" {
		t.Errorf("exp subject svc-a, got %q", claims.Subject)
	}
	if diff := cmp.Diff(issued.Add(30*time.Second), claims.ExpiresAt.Time); diff != "" {
		t.Errorf("expiry mismatch (-exp +got):\n%s", diff)
	}
	if claims.ID == "" {
		t.Error("exp a token ID")
	}
}

func TestJWTSigner_HookKeepsExplicitHeader(t *testing.T) {
	d := &request.Descriptor{Headers: http.Header{HeaderName: {"Bearer fixed"}}}

	if err := (JWTSigner{Key: []byte("k")}).Hook()(t.Context(), d); err != nil {
		t.Fatalf("running hook: %v", err)
	}

	if got := d.Headers.Get(HeaderName); got != "Bearer fixed" {
		t.Errorf("explicit header overwritten: %q", got)
	}
}

func TestJWTSigner_MissingKey(t *testing.T) {
	if _, err := (JWTSigner{}).Sign(time.Now()); err == nil {
		t.Error("exp error without key")
	}
}
