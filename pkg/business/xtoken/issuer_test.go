package xtoken

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatoand97/RestClient/pkg/util/xtext"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type capturedRequest struct {
	header http.Header
	body   string
}

func newTokenServer(t *testing.T, status int, response string) (*httptest.Server, <-chan capturedRequest) {
	t.Helper()
	captured := make(chan capturedRequest, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body) //nolint:errcheck // 测试
		captured <- capturedRequest{header: r.Header.Clone(), body: string(body)}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newTestIssuer(srv *httptest.Server) *HTTPIssuer {
	return NewHTTPIssuer(
		WithHTTPClient(srv.Client()),
		WithIssuerClock(func() time.Time { return fixedNow }),
	)
}

func TestHTTPIssuer_FormCredentialsInBody(t *testing.T) {
	srv, captured := newTokenServer(t, http.StatusOK,
		`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`)

	setting := &Setting{
		TokenURL:     srv.URL + "/oauth/token",
		Scope:        "api://orders/.default",
		ClientID:     "client",
		ClientSecret: "s3cret",
		Headers:      map[string]string{"Ocp-Apim-Subscription-Key": "sub"},
	}
	tok, err := newTestIssuer(srv).Issue(context.Background(), "orders", setting)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-1", tok.Header())
	assert.Equal(t, fixedNow, tok.ObtainedAt)
	assert.Equal(t, fixedNow.Add(3540*time.Second), tok.ExpiresAt)

	req := <-captured
	assert.Equal(t, DefaultContentType, req.header.Get("Content-Type"))
	assert.Equal(t, "sub", req.header.Get("Ocp-Apim-Subscription-Key"))
	assert.Empty(t, req.header.Get("Authorization"))

	form, err := url.ParseQuery(req.body)
	require.NoError(t, err)
	assert.Equal(t, "client_credentials", form.Get("grant_type"))
	assert.Equal(t, "api://orders/.default", form.Get("scope"))
	assert.Equal(t, "client", form.Get("client_id"))
	assert.Equal(t, "s3cret", form.Get("client_secret"))
	assert.False(t, form.Has("audience"), "empty audience is omitted")
}

func TestHTTPIssuer_JSONCredentialsInHeader(t *testing.T) {
	srv, captured := newTokenServer(t, http.StatusOK,
		`{"access_token":"tok-2","token_type":"Bearer","expires_in":"100"}`)

	setting := &Setting{
		TokenURL:     srv.URL,
		GrantType:    "custom_grant",
		Audience:     "https://api.example.com",
		ClientID:     "client",
		ClientSecret: "s3cret",
		ContentType:  "application/json; charset=utf-8",
		AuthMode:     AuthModeCredentialsInHeader,
		Headers:      map[string]string{"authorization": "Bearer should-be-ignored"},
	}
	tok, err := newTestIssuer(srv).Issue(context.Background(), "billing", setting)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(90*time.Second), tok.ExpiresAt)

	req := <-captured
	assert.Equal(t, "application/json; charset=utf-8", req.header.Get("Content-Type"))
	user, pass, ok := (&http.Request{Header: req.header}).BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "client", user)
	assert.Equal(t, "s3cret", pass)

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(req.body), &body))
	assert.Equal(t, map[string]string{
		"grant_type": "custom_grant",
		"audience":   "https://api.example.com",
	}, body)
}

func TestHTTPIssuer_AuthModeNone(t *testing.T) {
	srv, captured := newTokenServer(t, http.StatusOK,
		`{"access_token":"tok-3","token_type":"Bearer"}`)

	setting := &Setting{TokenURL: srv.URL, AuthMode: AuthModeNone, ClientID: "ignored"}
	tok, err := newTestIssuer(srv).Issue(context.Background(), "public", setting)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(54*time.Second), tok.ExpiresAt, "missing expires_in defaults to 60")

	req := <-captured
	assert.Empty(t, req.header.Get("Authorization"))
	form, err := url.ParseQuery(req.body)
	require.NoError(t, err)
	assert.Equal(t, url.Values{"grant_type": {"client_credentials"}}, form)
}

func TestHTTPIssuer_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		wantCode int
	}{
		{"error status", http.StatusBadRequest, `{"error":"invalid_client"}`, http.StatusBadRequest},
		{"server error", http.StatusInternalServerError, "boom", http.StatusInternalServerError},
		{"invalid json", http.StatusOK, "not json", http.StatusOK},
		{"missing access token", http.StatusOK, `{"token_type":"Bearer","expires_in":10}`, http.StatusOK},
		{"blank token type", http.StatusOK, `{"access_token":"x","token_type":"  "}`, http.StatusOK},
		{"bad expires_in", http.StatusOK, `{"access_token":"x","token_type":"Bearer","expires_in":"soon"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTokenServer(t, tt.status, tt.response)
			_, err := newTestIssuer(srv).Issue(context.Background(), "orders",
				&Setting{TokenURL: srv.URL, ClientID: "id"})

			require.ErrorIs(t, err, ErrTokenAcquisition)
			var acqErr *AcquisitionError
			require.ErrorAs(t, err, &acqErr)
			assert.Equal(t, "orders", acqErr.Service)
			assert.Equal(t, tt.wantCode, acqErr.StatusCode)
			assert.False(t, acqErr.Retryable())
		})
	}
}

func TestHTTPIssuer_ErrorBodyExcerptIsBounded(t *testing.T) {
	srv, _ := newTokenServer(t, http.StatusUnauthorized, strings.Repeat("é", 2000))

	_, err := newTestIssuer(srv).Issue(context.Background(), "orders",
		&Setting{TokenURL: srv.URL, ClientID: "id"})

	var acqErr *AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.LessOrEqual(t, len(acqErr.Body), maxErrorExcerpt)
	assert.True(t, strings.HasSuffix(acqErr.Body, xtext.TruncatedSuffix))
	assert.True(t, utf8.ValidString(acqErr.Body))
	assert.Contains(t, acqErr.Error(), "status 401")
}

func TestHTTPIssuer_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	tokenURL := srv.URL
	srv.Close()

	_, err := NewHTTPIssuer().Issue(context.Background(), "orders",
		&Setting{TokenURL: tokenURL, ClientID: "id"})

	var acqErr *AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.Zero(t, acqErr.StatusCode)
	assert.Error(t, acqErr.Unwrap())
}

func TestHTTPIssuer_NilSetting(t *testing.T) {
	_, err := NewHTTPIssuer().Issue(context.Background(), "orders", nil)
	assert.ErrorIs(t, err, ErrNilSetting)
}
