package cartstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/cartd/internal/cart"
	pkgerrors "github.com/angelmondragon/cartd/pkg/errors"
)

const (
	backendCookie    = "cookie"
	cookieNamePrefix = "ca_"
	cookiePath       = "/"
	cookieIssuer     = "cartd"
	// maxCookieBytes caps name=value; browsers drop larger cookies silently.
	maxCookieBytes   = 4096
)

var cookieSigningMethod = jwt.SigningMethodHS256

type cookieClaims struct {
	Items []cart.LineItem `json:"items"`
	jwt.RegisteredClaims
}

// CookieStore keeps the cart in a signed cookie on the visitor's browser.
type CookieStore struct {
	base
	jar    *CookieJar
	secret []byte
	secure bool
	now    func() time.Time
}

// NewCookieStore binds a cookie store to the request's jar.
func NewCookieStore(clientID string, jar *CookieJar, secret string, secure bool, ttl time.Duration, metrics storeMetrics, listeners ...cart.Listener) (*CookieStore, error) {
	if jar == nil {
		return nil, errors.New("cookie jar is required")
	}
	if secret == "" {
		return nil, errors.New("cookie secret is required")
	}
	return &CookieStore{
		base:   base{clientID: clientID, ttl: ttl, metrics: metrics, listeners: listeners},
		jar:    jar,
		secret: []byte(secret),
		secure: secure,
		now:    time.Now,
	}, nil
}

func (s *CookieStore) Backend() string {
	return backendCookie
}

// CookieName is the cookie carrying this owner's cart.
func (s *CookieStore) CookieName() string {
	return CookieName(s.clientID)
}

// CookieName derives a valid cookie name from an owner key.
func CookieName(clientID string) string {
	var b strings.Builder
	b.WriteString(cookieNamePrefix)
	for _, r := range clientID {
		if r < 0x80 && (r == '-' || r == '_' || r == '.' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

func (s *CookieStore) Items(ctx context.Context) ([]cart.LineItem, error) {
	raw, ok := s.jar.Get(s.CookieName())
	if !ok || raw == "" {
		return []cart.LineItem{}, nil
	}

	claims := &cookieClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != cookieSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{cookieSigningMethod.Alg()}),
		jwt.WithIssuer(cookieIssuer),
		jwt.WithSubject(s.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if !errors.Is(err, jwt.ErrTokenExpired) {
			s.decodeFailed(backendCookie)
		}
		return []cart.LineItem{}, nil
	}
	return cart.New(s.clientID, claims.Items).Lines(), nil
}

func (s *CookieStore) SetItems(ctx context.Context, items []cart.LineItem, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now()
	expires := now.Add(ttl)
	claims := cookieClaims{
		Items: items,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cookieIssuer,
			Subject:   s.clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(cookieSigningMethod, claims).SignedString(s.secret)
	s.observe(backendCookie, "set_items", err)
	if err != nil {
		return fmt.Errorf("signing cart cookie: %w", err)
	}
	name := s.CookieName()
	if len(name)+1+len(signed) > maxCookieBytes {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cart of %d lines is too large for cookie storage", len(items)))
	}

	s.jar.Queue(&http.Cookie{
		Name:     name,
		Value:    signed,
		Path:     cookiePath,
		Expires:  expires,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *CookieStore) Forget(ctx context.Context) error {
	s.jar.Expire(s.CookieName(), cookiePath)
	s.observe(backendCookie, "forget", nil)
	return nil
}

func (s *CookieStore) MakeCart(ctx context.Context) (*cart.Cart, error) {
	return s.makeCart(ctx, s)
}
