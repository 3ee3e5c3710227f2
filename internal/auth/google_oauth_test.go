package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	authmw "github.com/mind-engage/mindengage-learn/internal/auth/middleware"
	"github.com/mind-engage/mindengage-learn/internal/db"
	"github.com/mind-engage/mindengage-learn/internal/logging"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
)

const testPublicURL = "https://learn.test"

type fakeGoogle struct {
	srv      *httptest.Server
	verified bool
	hd       string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	f := &fakeGoogle{verified: true}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"google-at","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer google-at" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub": "123", "email": "Learner@Example.com", "email_verified": f.verified, "name": "Learner", "hd": f.hd,
		})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func newGoogleLogin(t *testing.T, f *fakeGoogle, hd string) (*GoogleLogin, *authmw.AuthService) {
	t.Helper()
	d, err := db.OpenMemory(context.Background(), t.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = d.Close() })
	tokens := authmw.NewAuthService("test-secret", time.Hour)
	g := NewGoogleLogin(GoogleConfig{
		ClientID:      "client",
		ClientSecret:  "secret",
		RedirectURL:   testPublicURL + "/auth/google/callback",
		AllowedDomain: hd,
		PublicURL:     testPublicURL,
		Endpoint:      oauth2.Endpoint{AuthURL: f.srv.URL + "/auth", TokenURL: f.srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
		UserInfoURL:   f.srv.URL + "/userinfo",
	}, tokens, authmw.NewUserStore(d), logging.Discard())
	return g, tokens
}

// startLogin runs the login redirect and returns the state and its cookies.
func startLogin(t *testing.T, g *GoogleLogin, redirect string) (string, []*http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	g.LoginHandler()(rec, httptest.NewRequest(http.MethodGet, "/auth/google/login?redirect="+url.QueryEscape(redirect), nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("login status %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	if loc.Query().Get("client_id") != "client" || loc.Query().Get("state") == "" {
		t.Fatalf("unexpected auth url %s", loc)
	}
	return loc.Query().Get("state"), rec.Result().Cookies()
}

func callback(g *GoogleLogin, state, code string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state="+state+"&code="+code, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	g.CallbackHandler()(rec, req)
	return rec
}

func TestGoogleSignInCreatesStudent(t *testing.T) {
	f := newFakeGoogle(t)
	g, tokens := newGoogleLogin(t, f, "")

	var ids []int64
	for i := 0; i < 2; i++ {
		state, cookies := startLogin(t, g, "/subjects")
		rec := callback(g, state, "good-code", cookies)
		if rec.Code != http.StatusFound {
			t.Fatalf("callback status %d: %s", rec.Code, rec.Body)
		}
		loc, _ := url.Parse(rec.Header().Get("Location"))
		if !strings.HasPrefix(loc.String(), testPublicURL+"/subjects?") {
			t.Fatalf("unexpected redirect %s", loc)
		}
		p, err := tokens.Parse(loc.Query().Get("access_token"))
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		if p.Role != rbac.RoleStudent {
			t.Fatalf("role = %s", p.Role)
		}
		ids = append(ids, p.UserID)
	}
	if ids[0] != ids[1] {
		t.Fatalf("second sign-in created a new user: %v", ids)
	}
}

func TestGoogleCallbackRejects(t *testing.T) {
	f := newFakeGoogle(t)
	g, _ := newGoogleLogin(t, f, "school.example")

	state, cookies := startLogin(t, g, "")
	if rec := callback(g, "forged", "good-code", cookies); rec.Code != http.StatusBadRequest {
		t.Fatalf("forged state: %d", rec.Code)
	}
	if rec := callback(g, state, "bad-code", cookies); rec.Code != http.StatusBadGateway {
		t.Fatalf("bad code: %d", rec.Code)
	}
	if rec := callback(g, state, "good-code", cookies); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong hosted domain: %d", rec.Code)
	}
	f.hd = "school.example"
	f.verified = false
	if rec := callback(g, state, "good-code", cookies); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unverified email: %d", rec.Code)
	}
}

func TestSafeRedirect(t *testing.T) {
	g := &GoogleLogin{publicURL: testPublicURL}
	tests := map[string]string{
		"":                          testPublicURL + "/",
		"/quizzes/1":                testPublicURL + "/quizzes/1",
		testPublicURL + "/x":        testPublicURL + "/x",
		"http://localhost:19006/cb": "http://localhost:19006/cb",
		"https://evil.example/":     testPublicURL + "/",
		"//evil.example/":           testPublicURL + "/",
		"mindengage://auth":         "mindengage://auth",
	}
	for in, want := range tests {
		if got := g.safeRedirect(in); got != want {
			t.Errorf("safeRedirect(%q) = %q, want %q", in, got, want)
		}
	}
}
