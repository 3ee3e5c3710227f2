// Package auth holds the external sign-in flows. Token issuing and the user
// store live in internal/auth/middleware.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	authmw "github.com/mind-engage/mindengage-learn/internal/auth/middleware"
)

const (
	stateCookie    = "me_oauth_state"
	redirectCookie = "me_post_auth_redirect"

	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

type GoogleConfig struct {
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	AllowedDomain string // hosted domain (hd) restriction, optional
	PublicURL     string

	// zero values mean Google's production endpoints
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// GoogleLogin signs users in with Google and hands back an internal JWT.
// Unknown emails become students.
type GoogleLogin struct {
	oauth       *oauth2.Config
	userInfoURL string
	allowedHD   string
	publicURL   string
	tokens      *authmw.AuthService
	users       *authmw.UserStore
	log         logrus.FieldLogger
}

func NewGoogleLogin(cfg GoogleConfig, tokens *authmw.AuthService, users *authmw.UserStore, log logrus.FieldLogger) *GoogleLogin {
	ep := cfg.Endpoint
	if ep.AuthURL == "" {
		ep = endpoints.Google
	}
	info := cfg.UserInfoURL
	if info == "" {
		info = googleUserInfoURL
	}
	return &GoogleLogin{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     ep,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: info,
		allowedHD:   cfg.AllowedDomain,
		publicURL:   strings.TrimRight(cfg.PublicURL, "/"),
		tokens:      tokens,
		users:       users,
		log:         log,
	}
}

// GET /auth/google/login?redirect=  → redirect to Google
func (g *GoogleLogin) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next := g.safeRedirect(r.URL.Query().Get("redirect"))
		state := uuid.NewString()
		exp := time.Now().Add(10 * time.Minute)
		http.SetCookie(w, &http.Cookie{
			Name: stateCookie, Value: state, Path: "/", HttpOnly: true, Secure: true,
			SameSite: http.SameSiteLaxMode, Expires: exp,
		})
		http.SetCookie(w, &http.Cookie{
			Name: redirectCookie, Value: url.QueryEscape(next), Path: "/", HttpOnly: true, Secure: true,
			SameSite: http.SameSiteLaxMode, Expires: exp,
		})

		var opts []oauth2.AuthCodeOption
		if g.allowedHD != "" {
			opts = append(opts, oauth2.SetAuthURLParam("hd", g.allowedHD))
		}
		http.Redirect(w, r, g.oauth.AuthCodeURL(state, opts...), http.StatusFound)
	}
}

type googleUser struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	HD            string `json:"hd"`
}

// GET /auth/google/callback → exchange code, load profile, mint internal JWT,
// redirect back with ?access_token=
func (g *GoogleLogin) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		c, err := r.Cookie(stateCookie)
		if err != nil || c.Value == "" || c.Value != q.Get("state") {
			http.Error(w, "invalid state", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		tok, err := g.oauth.Exchange(r.Context(), code)
		if err != nil {
			g.log.WithError(err).Warn("google token exchange failed")
			http.Error(w, "token exchange error", http.StatusBadGateway)
			return
		}
		info, err := g.userInfo(r.Context(), tok)
		if err != nil {
			g.log.WithError(err).Warn("google userinfo failed")
			http.Error(w, "userinfo error", http.StatusBadGateway)
			return
		}
		if !info.EmailVerified {
			http.Error(w, "email not verified", http.StatusUnauthorized)
			return
		}
		if g.allowedHD != "" && !strings.EqualFold(info.HD, g.allowedHD) {
			http.Error(w, "unauthorized domain", http.StatusUnauthorized)
			return
		}

		u, err := g.users.FindOrCreateStudent(r.Context(), info.Email, info.Name)
		if err != nil {
			g.log.WithError(err).Error("google sign-in: user lookup failed")
			http.Error(w, "user lookup failed", http.StatusServiceUnavailable)
			return
		}
		jwt, err := g.tokens.IssueJWT(u.ID, u.Role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		g.log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("google sign-in")

		target := g.publicURL + "/"
		if rc, err := r.Cookie(redirectCookie); err == nil {
			if raw, _ := url.QueryUnescape(rc.Value); raw != "" {
				target = g.safeRedirect(raw)
			}
		}
		http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", Expires: time.Unix(0, 0), MaxAge: -1})
		http.SetCookie(w, &http.Cookie{Name: redirectCookie, Value: "", Path: "/", Expires: time.Unix(0, 0), MaxAge: -1})

		dst, _ := url.Parse(target)
		dq := dst.Query()
		dq.Set("access_token", jwt)
		dst.RawQuery = dq.Encode()
		http.Redirect(w, r, dst.String(), http.StatusFound)
	}
}

func (g *GoogleLogin) userInfo(ctx context.Context, tok *oauth2.Token) (googleUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return googleUser{}, err
	}
	resp, err := g.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return googleUser{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return googleUser{}, fmt.Errorf("userinfo status %d: %s", resp.StatusCode, b)
	}
	var u googleUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return googleUser{}, err
	}
	if u.Email == "" {
		return googleUser{}, errors.New("userinfo without email")
	}
	return u, nil
}

// safeRedirect only allows targets on PUBLIC_URL's origin, relative paths,
// app deep links and localhost.
func (g *GoogleLogin) safeRedirect(next string) string {
	fallback := g.publicURL + "/"
	if next == "" {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil {
		return fallback
	}
	base, _ := url.Parse(g.publicURL)
	switch {
	case u.Scheme == "" && u.Host == "" && strings.HasPrefix(u.Path, "/"):
		return g.publicURL + u.RequestURI()
	case base != nil && u.Scheme == base.Scheme && u.Host == base.Host:
		return next
	case u.Hostname() == "localhost":
		return next
	case u.Scheme == "mindengage":
		return next
	}
	return fallback
}
