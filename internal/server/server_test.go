package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/photomirror/internal/shared"
	"golang.org/x/oauth2"
)

// newTokenServer fakes the Google token endpoint.
func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse token request: %v", err)
		}
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"access","refresh_token":"refresh","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/oauth/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: "http://unused", TokenURL: tokenURL},
	}
}

func callback(h http.Handler, query url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestOAuthHandler(t *testing.T) {
	tokens := newTokenServer(t)

	t.Run("Routes follow redirect URL", func(t *testing.T) {
		h := NewOAuthHandler(testConfig(tokens.URL), "state", nil)
		if got := h.Routes(); len(got) != 1 || got[0] != "/oauth/callback" {
			t.Errorf("expected /oauth/callback, got %v", got)
		}

		bare := testConfig(tokens.URL)
		bare.RedirectURL = "http://localhost:8080"
		if got := NewOAuthHandler(bare, "state", nil).Routes(); got[0] != "/callback" {
			t.Errorf("expected /callback default, got %v", got)
		}
	})

	t.Run("successful exchange", func(t *testing.T) {
		h := NewOAuthHandler(testConfig(tokens.URL), "state", nil)
		rec := callback(h, url.Values{"state": {"state"}, "code": {"good-code"}})

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "Account linked") {
			t.Error("expected success page")
		}

		result := <-h.Result()
		if result.Error() != nil {
			t.Fatalf("unexpected error: %v", result.Error())
		}
		if result.Token.AccessToken != "access" || result.Token.RefreshToken != "refresh" {
			t.Errorf("unexpected token: %+v", result.Token)
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		h := NewOAuthHandler(testConfig(tokens.URL), "state", nil)
		rec := callback(h, url.Values{"state": {"forged"}, "code": {"good-code"}})

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if !errors.Is(result.Error(), shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", result.Error())
		}
	})

	t.Run("denied consent", func(t *testing.T) {
		h := NewOAuthHandler(testConfig(tokens.URL), "state", nil)
		rec := callback(h, url.Values{"state": {"state"}, "error": {"access_denied"}})

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", result.Error())
		}
	})

	t.Run("failed exchange", func(t *testing.T) {
		h := NewOAuthHandler(testConfig(tokens.URL), "state", nil)
		rec := callback(h, url.Values{"state": {"state"}, "code": {"bad-code"}})

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if result := <-h.Result(); !errors.Is(result.Error(), shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", result.Error())
		}
	})

	t.Run("second callback rejected", func(t *testing.T) {
		h := NewOAuthHandler(testConfig(tokens.URL), "state", nil)
		callback(h, url.Values{"state": {"state"}, "code": {"good-code"}})
		rec := callback(h, url.Values{"state": {"state"}, "code": {"good-code"}})

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 on replay, got %d", rec.Code)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("outer"), mark("inner"))
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

		want := []string{"outer", "inner", "handler"}
		if strings.Join(order, ",") != strings.Join(want, ",") {
			t.Errorf("expected %v, got %v", want, order)
		}
	})

	t.Run("method mismatch", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestCallbackServer(t *testing.T) {
	tokens := newTokenServer(t)

	t.Run("delivers token", func(t *testing.T) {
		h := NewOAuthHandler(testConfig(tokens.URL), "state", nil)
		srv, err := NewCallbackServer("127.0.0.1:0", h, nil)
		if err != nil {
			t.Fatalf("failed to start server: %v", err)
		}
		srv.Start()

		go func() {
			resp, err := http.Get("http://" + srv.Addr() + "/oauth/callback?state=state&code=good-code")
			if err != nil {
				t.Errorf("callback request failed: %v", err)
				return
			}
			resp.Body.Close()
		}()

		token, err := srv.Wait(context.Background(), 5*time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token.AccessToken != "access" {
			t.Errorf("expected access token, got %s", token.AccessToken)
		}
	})

	t.Run("times out", func(t *testing.T) {
		h := NewOAuthHandler(testConfig(tokens.URL), "state", nil)
		srv, err := NewCallbackServer("127.0.0.1:0", h, nil)
		if err != nil {
			t.Fatalf("failed to start server: %v", err)
		}
		srv.Start()

		if _, err := srv.Wait(context.Background(), 10*time.Millisecond); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		h := NewOAuthHandler(testConfig(tokens.URL), "state", nil)
		srv, err := NewCallbackServer("127.0.0.1:0", h, nil)
		if err != nil {
			t.Fatalf("failed to start server: %v", err)
		}
		srv.Start()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := srv.Wait(ctx, time.Minute); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
