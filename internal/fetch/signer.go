package fetch

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const adminPathPrefix = "/admin/"

// AdminSignerConfig configures bearer tokens for the upstream admin routes.
type AdminSignerConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Subject  string
	TTL      time.Duration
}

// AdminSigner attaches a short-lived HS256 bearer token to requests whose
// path is under /admin/. Other requests pass through unchanged.
type AdminSigner struct {
	config AdminSignerConfig
	now    func() time.Time
}

func NewAdminSigner(cfg AdminSignerConfig) *AdminSigner {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Subject == "" {
		cfg.Subject = "journalfeed"
	}
	return &AdminSigner{config: cfg, now: time.Now}
}

func (s *AdminSigner) Sign(req *http.Request) error {
	if !strings.Contains(req.URL.Path, adminPathPrefix) {
		return nil
	}

	token, err := s.Token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (s *AdminSigner) Token() (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": s.config.Subject,
		"iss": s.config.Issuer,
		"aud": s.config.Audience,
		"iat": now.Unix(),
		"exp": now.Add(s.config.TTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, nil
}
