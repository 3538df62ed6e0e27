package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/maplewind/maplewind-api/internal/user/entity"
	"github.com/maplewind/maplewind-api/internal/user/repo"
)

const (
	birthdateLayout = "2006-01-02"
	fallbackName    = "Kakao User"
)

// OAuthProfile is the subset of a Kakao account the flows consume. Fields the
// user did not consent to share are empty.
type OAuthProfile struct {
	ID          int64
	PhoneNumber string
	BirthYear   string // YYYY
	BirthDay    string // MMDD
	Gender      string
	LegalName   string
	Nickname    string
}

// OAuthBridge talks to Kakao.
type OAuthBridge interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*OAuthProfile, error)
	Unlink(ctx context.Context, kakaoID int64, adminKey string) error
	AuthCodeURL(state string) string
}

// OAuthLoginResult is either a session for a known account or a register
// token for a new one.
type OAuthLoginResult struct {
	IsNewUser     bool
	RegisterToken string
	Session       *TokenPair
}

// ProcessOAuthLogin resolves an authorization code to an account. A Kakao id
// match logs in directly; a phone number match links the Kakao id to that
// account first; otherwise the profile is parked in a register token.
func (s *Service) ProcessOAuthLogin(ctx context.Context, code string) (*OAuthLoginResult, error) {
	if s.bridge == nil {
		return nil, fmt.Errorf("%w: kakao is not configured", ErrMisconfigured)
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrOAuthRejected)
	}
	token, err := s.bridge.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuthRejected, err)
	}
	p, err := s.bridge.FetchProfile(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuthRejected, err)
	}

	u, err := s.users.GetByKakaoID(ctx, p.ID)
	if err == nil {
		return s.oauthSession(ctx, u)
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("lookup kakao id: %w", err)
	}

	phone := NormalizePhoneNumber(p.PhoneNumber)
	if phone != "" {
		u, err := s.users.GetByPhoneNumber(ctx, phone)
		switch {
		case err == nil:
			if err := s.users.LinkKakao(ctx, u.ID, p.ID); err != nil {
				return nil, fmt.Errorf("link kakao id: %w", err)
			}
			u.KakaoID = &p.ID
			s.logger.Infow("kakao account linked by phone number", "user_id", u.ID, "kakao_id", p.ID)
			return s.oauthSession(ctx, u)
		case !errors.Is(err, repo.ErrNotFound):
			return nil, fmt.Errorf("lookup phone number: %w", err)
		}
	}

	rt, err := s.issuer.IssueRegisterToken(RegisterClaims{
		KakaoID:     p.ID,
		PhoneNumber: phone,
		Birthdate:   BuildBirthdate(p.BirthYear, p.BirthDay),
		Gender:      p.Gender,
		Name:        DisplayName(p),
	})
	if err != nil {
		return nil, fmt.Errorf("sign register token: %w", err)
	}
	return &OAuthLoginResult{IsNewUser: true, RegisterToken: rt}, nil
}

func (s *Service) oauthSession(ctx context.Context, u *entity.User) (*OAuthLoginResult, error) {
	pair, err := s.openSession(ctx, u)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("user logged in with kakao", "user_id", u.ID)
	return &OAuthLoginResult{Session: pair}, nil
}

// FinalizeOAuthRegistration creates the account parked in a register token.
// The Kakao id doubles as the username. A second redemption of the same token
// fails with ErrConflict because the Kakao id is already taken.
func (s *Service) FinalizeOAuthRegistration(ctx context.Context, registerToken, studentID, nickname string) (*TokenPair, error) {
	claims, err := s.issuer.ParseRegisterToken(registerToken)
	if err != nil {
		return nil, err
	}
	studentID, nickname = strings.TrimSpace(studentID), strings.TrimSpace(nickname)
	if studentID == "" || nickname == "" {
		return nil, fmt.Errorf("%w: student id and nickname are required", ErrInvalidInput)
	}

	kakaoID := claims.KakaoID
	u := &entity.User{
		Username:  strconv.FormatInt(kakaoID, 10),
		Name:      claims.Name,
		KakaoID:   &kakaoID,
		StudentID: &studentID,
		Nickname:  &nickname,
	}
	if claims.PhoneNumber != "" {
		u.PhoneNumber = &claims.PhoneNumber
	}
	if claims.Gender != "" {
		u.Gender = &claims.Gender
	}
	if claims.Birthdate != "" {
		if d, err := time.Parse(birthdateLayout, claims.Birthdate); err == nil {
			u.Birthdate = &d
		}
	}

	pair, err := s.newPair(u)
	if err != nil {
		return nil, err
	}
	s.sessions.Attach(u, pair.RefreshToken, s.now())
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create kakao user: %w", err)
	}
	pair.ExpiresAt = *u.RefreshTokenExpiresAt
	s.logger.Infow("kakao user registered", "user_id", u.ID, "kakao_id", kakaoID)
	return pair, nil
}

// KakaoAuthURL is where the browser goes to start a Kakao login.
func (s *Service) KakaoAuthURL(state string) (string, error) {
	if s.bridge == nil {
		return "", fmt.Errorf("%w: kakao is not configured", ErrMisconfigured)
	}
	return s.bridge.AuthCodeURL(state), nil
}

// NormalizePhoneNumber turns Kakao's "+82 10-1234-5678" into "010-1234-5678".
// Numbers without the country prefix only lose their spaces.
func NormalizePhoneNumber(raw string) string {
	p := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(p, "+82"); ok {
		p = "0" + strings.TrimSpace(rest)
	}
	return strings.ReplaceAll(p, " ", "")
}

// BuildBirthdate joins a YYYY year and an MMDD day into YYYY-MM-DD. It returns
// "" when either part is missing or the result is not a real date.
func BuildBirthdate(year, monthDay string) string {
	if len(year) != 4 || len(monthDay) != 4 {
		return ""
	}
	d := year + "-" + monthDay[:2] + "-" + monthDay[2:]
	if _, err := time.Parse(birthdateLayout, d); err != nil {
		return ""
	}
	return d
}

// DisplayName prefers the legal name, then the nickname.
func DisplayName(p *OAuthProfile) string {
	for _, n := range []string{p.LegalName, p.Nickname} {
		if n = strings.TrimSpace(n); n != "" {
			return n
		}
	}
	return fallbackName
}
