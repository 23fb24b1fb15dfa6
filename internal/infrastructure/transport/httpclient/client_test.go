package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amy/portal-client/internal/core/domain"
	"github.com/amy/portal-client/internal/core/ports"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestDo_JoinsBaseAndSendsJSON(t *testing.T) {
	var (
		gotPath  string
		gotQuery string
		gotBody  map[string]string
		gotType  string
		gotReqID string
	)
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotType = r.Header.Get("Content-Type")
		gotReqID = r.Header.Get(RequestIDHeader)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	c, err := New(srv.URL + "/api/")
	require.NoError(t, err)

	body, err := c.Do(context.Background(), http.MethodPost, "/auth/link-minecraft", ports.RequestOptions{
		Body:  map[string]string{"nickname": "Steve"},
		Query: url.Values{"x": []string{"1"}},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, "/api/auth/link-minecraft", gotPath)
	assert.Equal(t, "x=1", gotQuery)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, map[string]string{"nickname": "Steve"}, gotBody)
	assert.NotEmpty(t, gotReqID)
	assert.Equal(t, srv.URL+"/api", c.BaseURL())
}

func TestDo_NonSuccessStatus(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"application not found"}`)
	})
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), http.MethodDelete, "/rp/applications/app-1", ports.RequestOptions{})

	var se *domain.HTTPStatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Status)
	assert.Equal(t, http.MethodDelete, se.Method)
	assert.Equal(t, "/rp/applications/app-1", se.Path)
	assert.Contains(t, string(se.Body), "application not found")
	assert.ErrorIs(t, err, domain.ErrHTTPStatus)
}

func TestDo_ErrorBodyCapped(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, strings.Repeat("x", maxErrorBody+100))
	})
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), http.MethodGet, "/news", ports.RequestOptions{})
	var se *domain.HTTPStatusError
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Body, maxErrorBody)
}

func TestDo_TransportError(t *testing.T) {
	c, err := New("http://portal.invalid", WithTransport(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})))
	require.NoError(t, err)

	_, err = c.Do(context.Background(), http.MethodGet, "/auth/me", ports.RequestOptions{})
	assert.ErrorIs(t, err, domain.ErrTransport)

	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "/auth/me", te.Path)
}

func TestDo_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c, err := New(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Do(ctx, http.MethodGet, "/auth/me", ports.RequestOptions{})
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_CredentialsPolicy(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		default:
			if ck, err := r.Cookie("session"); err == nil {
				_, _ = io.WriteString(w, ck.Value)
			}
		}
	})
	c, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Do(ctx, http.MethodPost, "/login", ports.RequestOptions{Credentials: ports.CredentialsInclude})
	require.NoError(t, err)

	withCreds, err := c.Do(ctx, http.MethodGet, "/auth/me", ports.RequestOptions{Credentials: ports.CredentialsInclude})
	require.NoError(t, err)
	assert.Equal(t, "abc", string(withCreds))

	withoutCreds, err := c.Do(ctx, http.MethodGet, "/news", ports.RequestOptions{Credentials: ports.CredentialsOmit})
	require.NoError(t, err)
	assert.Empty(t, withoutCreds)
}

func TestNew_RejectsRelativeBase(t *testing.T) {
	_, err := New("/api")
	assert.Error(t, err)
}

func TestNew_SeedsSessionCookie(t *testing.T) {
	var gotCookie string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sid"); err == nil {
			gotCookie = c.Value
		}
		_, _ = io.WriteString(w, `{}`)
	})

	c, err := New(srv.URL+"/api", WithSessionCookie("sid=abc123"))
	require.NoError(t, err)

	_, err = c.Do(context.Background(), http.MethodGet, "/auth/me", ports.RequestOptions{Credentials: ports.CredentialsInclude})
	require.NoError(t, err)
	assert.Equal(t, "abc123", gotCookie)

	_, err = New(srv.URL, WithSessionCookie("=broken"))
	assert.Error(t, err)
}
