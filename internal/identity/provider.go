// Package identity talks to the identity provider's REST endpoints: custom
// token sign-in and ID token refresh. One Auth exists per admin session and
// persists the provider session in that admin's session scope.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dxt-admin/internal/config"
	"dxt-admin/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	// ErrRejected is returned when the provider refuses a token.
	ErrRejected = errors.New("identity provider rejected the token")
	ErrNoAPIKey = errors.New("identity provider api key is not configured")
)

// refreshWindow is how close to expiry a token is refreshed without being asked.
const refreshWindow = 5 * time.Minute

// User is the provider session of the signed-in admin.
type User struct {
	UID          string    `json:"uid"`
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Provider holds the provider endpoints and is shared by every session.
type Provider struct {
	apiKey    string
	signInURL string
	tokenURL  string
	http      *http.Client
	logger    *zap.Logger
	now       func() time.Time
}

func NewProvider(cfg config.IdentityConfig, timeout time.Duration, logger *zap.Logger) *Provider {
	return &Provider{
		apiKey:    cfg.APIKey,
		signInURL: strings.TrimRight(cfg.SignInURL, "/"),
		tokenURL:  strings.TrimRight(cfg.TokenURL, "/"),
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
		now:       time.Now,
	}
}

type providerError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) signInWithCustomToken(ctx context.Context, token string) (*User, error) {
	body, err := json.Marshal(map[string]any{
		"token":             token,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sign-in request: %w", err)
	}

	var out struct {
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"`
	}
	endpoint := p.signInURL + "/accounts:signInWithCustomToken"
	if err := p.post(ctx, endpoint, "application/json", body, &out); err != nil {
		return nil, fmt.Errorf("failed to sign in with custom token: %w", err)
	}

	return p.newUser(out.IDToken, out.RefreshToken, out.ExpiresIn)
}

func (p *Provider) refresh(ctx context.Context, refreshToken string) (*User, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	var out struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
	}
	endpoint := p.tokenURL + "/token"
	if err := p.post(ctx, endpoint, "application/x-www-form-urlencoded", []byte(form.Encode()), &out); err != nil {
		return nil, fmt.Errorf("failed to refresh id token: %w", err)
	}

	return p.newUser(out.IDToken, out.RefreshToken, out.ExpiresIn)
}

func (p *Provider) post(ctx context.Context, endpoint, contentType string, body []byte, out any) error {
	if p.apiKey == "" {
		return ErrNoAPIKey
	}
	endpoint += "?key=" + url.QueryEscape(p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var perr providerError
		_ = json.Unmarshal(data, &perr)
		p.logger.Warn("Identity provider error",
			zap.Int("status", resp.StatusCode),
			zap.String("message", perr.Error.Message),
		)
		if resp.StatusCode < 500 {
			return fmt.Errorf("%w: %s", ErrRejected, perr.Error.Message)
		}
		return fmt.Errorf("identity provider returned %d", resp.StatusCode)
	}

	return json.Unmarshal(data, out)
}

// newUser builds a User from a fresh token pair. Expiry and uid come from the
// ID token claims; expiresIn is the fallback for opaque tokens.
func (p *Provider) newUser(idToken, refreshToken, expiresIn string) (*User, error) {
	if idToken == "" {
		return nil, fmt.Errorf("%w: empty id token", ErrRejected)
	}
	user := &User{IDToken: idToken, RefreshToken: refreshToken}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			user.ExpiresAt = exp.Time
		}
		if sub, err := claims.GetSubject(); err == nil {
			user.UID = sub
		}
		if uid, ok := claims["user_id"].(string); ok && uid != "" {
			user.UID = uid
		}
	} else {
		p.logger.Debug("ID token is not a JWT", logger.Secret("id_token", idToken))
	}

	if user.ExpiresAt.IsZero() {
		secs, err := strconv.Atoi(expiresIn)
		if err != nil || secs <= 0 {
			secs = 3600
		}
		user.ExpiresAt = p.now().Add(time.Duration(secs) * time.Second)
	}
	return user, nil
}
