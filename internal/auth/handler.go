package auth

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/maplewind/maplewind-api/internal/user"
	"github.com/maplewind/maplewind-api/pkg/utilities"
)

const (
	RefreshCookie     = "refresh_token"
	RefreshCookiePath = "/api/v1/users/refresh"
	stateCookie       = "kakao_state"
)

// CookieConfig controls the refresh token cookie.
type CookieConfig struct {
	Secure bool
}

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
	cookie CookieConfig
}

func NewHandler(svc *Service, logger *zap.SugaredLogger, cookie CookieConfig) *Handler {
	return &Handler{svc: svc, logger: logger, cookie: cookie}
}

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type kakaoRegisterRequest struct {
	RegisterToken string `json:"register_token"`
	StudentID     string `json:"student_id"`
	Nickname      string `json:"nickname"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type kakaoLoginResponse struct {
	IsNewUser     bool   `json:"is_new_user"`
	RegisterToken string `json:"register_token,omitempty"`
	AccessToken   string `json:"access_token,omitempty"`
	TokenType     string `json:"token_type"`
}

// Signup handles POST /users/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utilities.WriteDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.svc.Signup(r.Context(), req.Username, req.Password, req.Name)
	if err != nil {
		writeError(w, h.logger, err, accessMessages)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, u.Profile())
}

// Login handles POST /users/login. It accepts the OAuth2 password form and JSON.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var username, password string
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/json" {
		var req signupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utilities.WriteDetail(w, http.StatusBadRequest, "invalid request body")
			return
		}
		username, password = req.Username, req.Password
	} else {
		if err := r.ParseForm(); err != nil {
			utilities.WriteDetail(w, http.StatusBadRequest, "invalid request")
			return
		}
		username, password = r.PostForm.Get("username"), r.PostForm.Get("password")
	}
	pair, err := h.svc.Login(r.Context(), username, password)
	if err != nil {
		writeError(w, h.logger, err, accessMessages)
		return
	}
	h.writeSession(w, pair)
}

// Refresh handles POST /users/refresh with the token from the cookie.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(RefreshCookie)
	if err != nil || c.Value == "" {
		writeError(w, h.logger, ErrInvalidToken, refreshMessages)
		return
	}
	pair, err := h.svc.Refresh(r.Context(), c.Value)
	if err != nil {
		writeError(w, h.logger, err, refreshMessages)
		return
	}
	h.writeSession(w, pair)
}

// Logout handles POST /users/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	u, ok := user.Current(r.Context())
	if !ok {
		writeError(w, h.logger, ErrInvalidToken, accessMessages)
		return
	}
	if err := h.svc.Logout(r.Context(), u); err != nil {
		writeError(w, h.logger, err, accessMessages)
		return
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Withdraw handles DELETE /users/me.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	u, ok := user.Current(r.Context())
	if !ok {
		writeError(w, h.logger, ErrInvalidToken, accessMessages)
		return
	}
	if err := h.svc.Withdraw(r.Context(), u); err != nil {
		writeError(w, h.logger, err, accessMessages)
		return
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// KakaoLogin redirects the browser to Kakao's consent screen.
func (h *Handler) KakaoLogin(w http.ResponseWriter, r *http.Request) {
	state := utilities.NewKSUID()
	target, err := h.svc.KakaoAuthURL(state)
	if err != nil {
		writeError(w, h.logger, err, accessMessages)
		return
	}
	h.setStateCookie(w, state, int((10 * time.Minute).Seconds()))
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// KakaoCallback handles GET /users/kakao/callback?code=... . The state is
// checked only when the flow began at KakaoLogin; frontends that run the
// consent screen themselves post the code without one.
func (h *Handler) KakaoCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if c, err := r.Cookie(stateCookie); err == nil {
		h.setStateCookie(w, "", -1)
		if c.Value != q.Get("state") {
			writeError(w, h.logger, ErrOAuthRejected, accessMessages)
			return
		}
	}
	res, err := h.svc.ProcessOAuthLogin(r.Context(), q.Get("code"))
	if err != nil {
		writeError(w, h.logger, err, accessMessages)
		return
	}
	if res.IsNewUser {
		utilities.WriteJSON(w, http.StatusOK, kakaoLoginResponse{IsNewUser: true, RegisterToken: res.RegisterToken, TokenType: "bearer"})
		return
	}
	h.setRefreshCookie(w, res.Session)
	utilities.WriteJSON(w, http.StatusOK, kakaoLoginResponse{
		AccessToken: res.Session.AccessToken,
		TokenType:   res.Session.TokenType,
	})
}

// KakaoRegister handles POST /users/kakao/register.
func (h *Handler) KakaoRegister(w http.ResponseWriter, r *http.Request) {
	var req kakaoRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utilities.WriteDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	pair, err := h.svc.FinalizeOAuthRegistration(r.Context(), req.RegisterToken, req.StudentID, req.Nickname)
	if err != nil {
		writeError(w, h.logger, err, registerMessages)
		return
	}
	h.writeSession(w, pair)
}

func (h *Handler) setStateCookie(w http.ResponseWriter, state string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/v1/users/kakao",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) writeSession(w http.ResponseWriter, pair *TokenPair) {
	h.setRefreshCookie(w, pair)
	utilities.WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, TokenType: pair.TokenType})
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, pair *TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    pair.RefreshToken,
		Path:     RefreshCookiePath,
		MaxAge:   int(h.svc.RefreshTTL().Seconds()),
		Expires:  pair.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     RefreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// messages names the token-related failures for one family of endpoints.
type messages struct {
	invalid  string
	expired  string
	conflict string
}

var (
	accessMessages = messages{
		invalid:  "Could not validate credentials",
		expired:  "Token has expired",
		conflict: "Username already registered",
	}
	refreshMessages = messages{
		invalid:  "Invalid refresh token",
		expired:  "Refresh token expired",
		conflict: "Account already registered",
	}
	registerMessages = messages{
		invalid:  "Invalid register token",
		expired:  "Register token expired",
		conflict: "Account already registered",
	}
)

func writeError(w http.ResponseWriter, logger *zap.SugaredLogger, err error, m messages) {
	unauthorized := func(msg string) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		utilities.WriteDetail(w, http.StatusUnauthorized, msg)
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		utilities.WriteDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrConflict):
		utilities.WriteDetail(w, http.StatusConflict, m.conflict)
	case errors.Is(err, ErrInvalidCredentials):
		unauthorized("Incorrect username or password")
	case errors.Is(err, ErrTokenExpired):
		unauthorized(m.expired)
	case errors.Is(err, ErrInvalidToken):
		unauthorized(m.invalid)
	case errors.Is(err, ErrOAuthRejected):
		unauthorized("Kakao authentication failed")
	case errors.Is(err, ErrUpstream):
		utilities.WriteDetail(w, http.StatusBadGateway, "Kakao unlink failed")
	case errors.Is(err, ErrMisconfigured):
		logger.Errorw("auth misconfigured", "error", err)
		utilities.WriteDetail(w, http.StatusInternalServerError, "Server misconfigured")
	default:
		logger.Errorw("auth request failed", "error", err)
		utilities.WriteDetail(w, http.StatusInternalServerError, "internal error")
	}
}
