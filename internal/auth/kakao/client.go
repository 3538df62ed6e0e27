// Package kakao is the Kakao Login REST client behind the auth OAuth flows.
package kakao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/maplewind/maplewind-api/internal/auth"
)

const (
	DefaultAuthBase = "https://kauth.kakao.com"
	DefaultAPIBase  = "https://kapi.kakao.com"
)

// ErrRejected is returned when Kakao answers with a non-2xx status.
var ErrRejected = errors.New("kakao: request rejected")

// Config holds the Kakao application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthBase     string // defaults to DefaultAuthBase
	APIBase      string // defaults to DefaultAPIBase
}

type Client struct {
	conf       *oauth2.Config
	apiBase    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which times out after 10s.
func WithHTTPClient(c *http.Client) Option {
	return func(k *Client) { k.httpClient = c }
}

func New(cfg Config, opts ...Option) *Client {
	authBase := strings.TrimRight(cfg.AuthBase, "/")
	if authBase == "" {
		authBase = DefaultAuthBase
	}
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	c := &Client{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authBase + "/oauth/authorize",
				TokenURL:  authBase + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase:    apiBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// AuthCodeURL is the consent screen URL for state.
func (c *Client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for a Kakao access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.conf.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return "", fmt.Errorf("%w: token endpoint status %d: %s", ErrRejected, re.Response.StatusCode, re.ErrorCode)
		}
		return "", fmt.Errorf("kakao token exchange: %w", err)
	}
	return tok.AccessToken, nil
}

type userMe struct {
	ID      int64 `json:"id"`
	Account struct {
		Name        string `json:"name"`
		PhoneNumber string `json:"phone_number"`
		BirthYear   string `json:"birthyear"`
		Birthday    string `json:"birthday"`
		Gender      string `json:"gender"`
		Profile     struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

// FetchProfile reads /v2/user/me with the user's access token.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*auth.OAuthProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/v2/user/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var me userMe
	if err := c.do(req, &me); err != nil {
		return nil, fmt.Errorf("fetch kakao profile: %w", err)
	}
	if me.ID == 0 {
		return nil, fmt.Errorf("%w: profile without id", ErrRejected)
	}
	return &auth.OAuthProfile{
		ID:          me.ID,
		PhoneNumber: me.Account.PhoneNumber,
		BirthYear:   me.Account.BirthYear,
		BirthDay:    me.Account.Birthday,
		Gender:      me.Account.Gender,
		LegalName:   me.Account.Name,
		Nickname:    me.Account.Profile.Nickname,
	}, nil
}

// Unlink disconnects the app from a Kakao account using the admin key.
func (c *Client) Unlink(ctx context.Context, kakaoID int64, adminKey string) error {
	form := url.Values{
		"target_id_type": {"user_id"},
		"target_id":      {strconv.FormatInt(kakaoID, 10)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v1/user/unlink", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "KakaoAK "+adminKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("unlink kakao user %d: %w", kakaoID, err)
	}
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ auth.OAuthBridge = (*Client)(nil)
