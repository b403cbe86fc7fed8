package recaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) VerificationResult {
	t.Helper()
	var res VerificationResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return res
}

func TestMiddleware(t *testing.T) {
	t.Run("passes verified requests", func(t *testing.T) {
		svc := newV2(t, testSettingsV2(), &fakeSiteVerifier{res: &VerifyResponse{Success: true}})
		var called bool
		rec := httptest.NewRecorder()

		Middleware(svc)(okHandler(&called)).ServeHTTP(rec, postForm(url.Values{TokenField: {"tok"}}))

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects missing token", func(t *testing.T) {
		svc := newV2(t, testSettingsV2(), &fakeSiteVerifier{res: &VerifyResponse{Success: true}})
		var called bool
		rec := httptest.NewRecorder()

		Middleware(svc)(okHandler(&called)).ServeHTTP(rec, postForm(url.Values{}))

		assert.False(t, called)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, StatusTokenMissing, decodeResult(t, rec).Status)
	})

	t.Run("rejects failed verification", func(t *testing.T) {
		svc := newV3(t, testSettingsV3(0.5), &fakeSiteVerifier{res: &VerifyResponse{Success: true, Score: 0.1}})
		var called bool
		rec := httptest.NewRecorder()

		Middleware(svc)(okHandler(&called)).ServeHTTP(rec, postForm(url.Values{TokenField: {"tok"}}))

		assert.False(t, called)
		res := decodeResult(t, rec)
		assert.False(t, res.Success)
		assert.Equal(t, StatusVerificationFailed, res.Status)
	})

	t.Run("reports provider error codes", func(t *testing.T) {
		svc := newV2(t, testSettingsV2(), &fakeSiteVerifier{res: &VerifyResponse{ErrorCodes: []string{ErrorCodeInvalidInputResponse}}})
		rec := httptest.NewRecorder()
		var called bool

		Middleware(svc, WithFailureHandler(JSONFailureHandler(http.StatusForbidden)))(okHandler(&called)).
			ServeHTTP(rec, postForm(url.Values{TokenField: {"tok"}}))

		assert.False(t, called)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		res := decodeResult(t, rec)
		assert.Equal(t, StatusVerifyError, res.Status)
		assert.Equal(t, []string{ErrorCodeInvalidInputResponse}, res.ErrorCodes)
	})

	t.Run("reports unreadable responses", func(t *testing.T) {
		v := VerifierFunc(func(context.Context, TokenSource) (bool, error) {
			return false, &ServiceError{Err: errors.New("boom")}
		})
		rec := httptest.NewRecorder()
		var called bool

		Middleware(v)(okHandler(&called)).ServeHTTP(rec, postForm(url.Values{TokenField: {"tok"}}))

		assert.Equal(t, StatusServiceError, decodeResult(t, rec).Status)
	})

	t.Run("custom failure handler", func(t *testing.T) {
		v := VerifierFunc(func(context.Context, TokenSource) (bool, error) { return false, nil })
		var got VerificationResult
		handler := func(w http.ResponseWriter, _ *http.Request, res VerificationResult) {
			got = res
			w.WriteHeader(http.StatusTeapot)
		}
		rec := httptest.NewRecorder()
		var called bool

		Middleware(v, WithFailureHandler(handler))(okHandler(&called)).ServeHTTP(rec, postForm(url.Values{TokenField: {"tok"}}))

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, StatusVerificationFailed, got.Status)
	})

	t.Run("timeout bounds the verification", func(t *testing.T) {
		v := VerifierFunc(func(ctx context.Context, _ TokenSource) (bool, error) {
			deadline, ok := ctx.Deadline()
			assert.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
			return true, nil
		})
		rec := httptest.NewRecorder()
		var called bool

		Middleware(v, WithTimeout(time.Second))(okHandler(&called)).ServeHTTP(rec, postForm(url.Values{TokenField: {"tok"}}))
		assert.True(t, called)
	})
}

func TestActionMiddleware(t *testing.T) {
	store := NewPolicyStore(Policy{PassingScore: UsePolicyDefault}, map[string]Policy{
		"login":  {PassingScore: 0.8},
		"search": {PassingScore: 0.3},
	})

	tests := []struct {
		action string
		want   int
	}{
		{"login", http.StatusBadRequest},
		{"search", http.StatusOK},
		{"other", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			fake := &fakeSiteVerifier{res: &VerifyResponse{Success: true, Score: 0.6, Action: tt.action}}
			svc := newV3(t, testSettingsV3(0.5), fake)
			rec := httptest.NewRecorder()
			var called bool
			ActionMiddleware(svc, StaticPolicies(store), tt.action)(okHandler(&called)).
				ServeHTTP(rec, postForm(url.Values{TokenField: {"tok"}}))
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	svc := newV3(t, testSettingsV3(0.5), &fakeSiteVerifier{res: &VerifyResponse{Success: true, Score: 0.9, Action: "search"}})

	t.Run("token for another action", func(t *testing.T) {
		rec := httptest.NewRecorder()
		var called bool
		ActionMiddleware(svc, StaticPolicies(nil), "login")(okHandler(&called)).
			ServeHTTP(rec, postForm(url.Values{TokenField: {"tok"}}))

		assert.False(t, called)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		res := decodeResult(t, rec)
		assert.Equal(t, StatusActionMismatch, res.Status)
		assert.Contains(t, res.Message, "expected 'login', got 'search'")
	})

	t.Run("policy load failure", func(t *testing.T) {
		rec := httptest.NewRecorder()
		var called bool
		ActionMiddleware(svc, NewPolicyLoader(""), "login")(okHandler(&called)).
			ServeHTTP(rec, postForm(url.Values{TokenField: {"tok"}}))

		assert.False(t, called)
		assert.Equal(t, StatusPolicyError, decodeResult(t, rec).Status)
	})
}

func TestInjectSettings(t *testing.T) {
	v2 := testSettingsV2()
	v2.Theme = ThemeDark
	v2.Size = SizeCompact
	v3 := testSettingsV3(0.5)
	v3.SiteKey = "site-v3"

	var ctx context.Context
	handler := InjectSettings(&v2, &v3)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "site", SiteKeyV2(ctx))
	assert.Equal(t, ThemeDark, ThemeV2(ctx))
	assert.Equal(t, SizeCompact, SizeV2(ctx))
	assert.Equal(t, "site-v3", SiteKeyV3(ctx))

	assert.Equal(t, "", SiteKeyV2(context.Background()))
}
