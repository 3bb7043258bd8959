package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront-checkout/internal/config"
	"storefront-checkout/internal/middleware"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokens() *middleware.OwnerTokens {
	return middleware.NewOwnerTokens(config.Owner{
		TokenSecret: "testsecret",
		TokenTTL:    time.Hour,
		CookieName:  "owner_token",
	}, false)
}

func serve(t *testing.T, tokens *middleware.OwnerTokens, req *http.Request) (*httptest.ResponseRecorder, string) {
	t.Helper()

	e := echo.New()
	var owner string
	e.GET("/", func(c echo.Context) error {
		owner = middleware.OwnerFromContext(c)
		return c.NoContent(http.StatusOK)
	}, middleware.Owner(tokens))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return rec, owner
}

func TestOwner_IssuesAnonymousCookie(t *testing.T) {
	tokens := newTokens()

	rec, owner := serve(t, tokens, httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, strings.HasPrefix(owner, "anon:"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "owner_token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	anonID, err := tokens.Parse(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "anon:"+anonID, owner)

	// the same cookie maps to the same owner on the next request
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec, again := serve(t, tokens, req)
	assert.Equal(t, owner, again)
	assert.Empty(t, rec.Result().Cookies())
}

func TestOwner_UserHeaderIgnoredByDefault(t *testing.T) {
	tokens := newTokens()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.UserIDHeader, "alice")

	rec, owner := serve(t, tokens, req)
	assert.NotEqual(t, "user:alice", owner)
	assert.True(t, strings.HasPrefix(owner, "anon:"))
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestOwner_UserHeaderWinsWhenTrusted(t *testing.T) {
	tokens := middleware.NewOwnerTokens(config.Owner{
		TokenSecret:     "testsecret",
		TokenTTL:        time.Hour,
		CookieName:      "owner_token",
		TrustUserHeader: true,
	}, false)
	signed, err := tokens.Issue("anon-1", time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.UserIDHeader, "42")
	req.AddCookie(&http.Cookie{Name: "owner_token", Value: signed})

	_, owner := serve(t, tokens, req)
	assert.Equal(t, "user:42", owner)
}

func TestOwner_RejectsForgedCookie(t *testing.T) {
	forged, err := middleware.NewOwnerTokens(config.Owner{
		TokenSecret: "other",
		TokenTTL:    time.Hour,
		CookieName:  "owner_token",
	}, false).Issue("victim", time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "owner_token", Value: forged})

	rec, owner := serve(t, newTokens(), req)
	assert.NotEqual(t, "anon:victim", owner)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestOwnerTokens_Expired(t *testing.T) {
	tokens := newTokens()
	signed, err := tokens.Issue("anon-1", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = tokens.Parse(signed)
	assert.Error(t, err)
}
