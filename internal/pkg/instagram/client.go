package instagram

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

	gothig "github.com/markbates/goth/providers/instagram"

	"github.com/ManuelReschke/Tochigi/internal/pkg/config"
)

const (
	defaultGraphURL = "https://graph.instagram.com"
	defaultAPIHost  = "api.instagram.com"
	mediaFields     = "id,caption,media_url,media_type,permalink,timestamp,like_count,comments_count"
	requestTimeout  = 15 * time.Second
)

var (
	ErrAuthentication = errors.New("instagram authentication failed, please reconnect your Instagram account")
	ErrPermission     = errors.New("instagram API permission denied, please check your app permissions")
	ErrRateLimited    = errors.New("instagram API rate limit exceeded, please try again later")
)

// APIError is a non-2xx answer of the Graph API.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
}

// Unwrap maps auth, permission and rate limit statuses onto the package
// sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrAuthentication
	case http.StatusForbidden:
		return ErrPermission
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// Media is one post as returned by the Graph API.
type Media struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	MediaURL      string `json:"media_url"`
	MediaType     string `json:"media_type"`
	Permalink     string `json:"permalink"`
	Timestamp     string `json:"timestamp"`
	LikeCount     int    `json:"like_count"`
	CommentsCount int    `json:"comments_count"`
}

// PublishedAt parses the Graph API timestamp (2024-01-02T03:04:05+0000).
func (m Media) PublishedAt() time.Time {
	for _, layout := range []string{"2006-01-02T15:04:05-0700", time.RFC3339} {
		if t, err := time.Parse(layout, m.Timestamp); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

type Profile struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	MediaCount int    `json:"media_count"`
}

// Token is a long-lived access token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ExpiresAt returns the absolute expiry relative to now.
func (t Token) ExpiresAt(now time.Time) time.Time {
	return now.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// API is what the rest of the application needs from Instagram.
type API interface {
	AuthorizationURL(state string) (string, error)
	ExchangeCode(ctx context.Context, code string) (string, error)
	LongLivedToken(ctx context.Context, shortLived string) (*Token, error)
	RefreshToken(ctx context.Context, accessToken string) (*Token, error)
	Profile(ctx context.Context, accessToken string) (*Profile, error)
	UserMedia(ctx context.Context, accessToken string, limit int) ([]Media, error)
	MediaDetails(ctx context.Context, mediaID, accessToken string) (*Media, error)
	CreatePhotoContainer(ctx context.Context, accessToken, imageURL, caption string) (string, error)
	PublishMedia(ctx context.Context, accessToken, creationID string) (string, error)
}

// Client talks to the Instagram Graph API. The OAuth leg is delegated to the
// goth instagram provider.
type Client struct {
	http         *http.Client
	graphURL     string
	clientSecret string
	provider     *gothig.Provider
}

var _ API = (*Client)(nil)

func NewClient(cfg config.InstagramConfig) *Client {
	graphURL := strings.TrimRight(cfg.GraphBaseURL, "/")
	if graphURL == "" {
		graphURL = defaultGraphURL
	}
	httpClient := &http.Client{Timeout: requestTimeout}

	provider := gothig.New(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI, "user_profile", "user_media")
	provider.HTTPClient = httpClient
	if base, err := url.Parse(strings.TrimRight(cfg.APIBaseURL, "/")); err == nil && base.Host != "" && base.Host != defaultAPIHost {
		// the provider has the OAuth host built in
		provider.HTTPClient = &http.Client{
			Timeout:   requestTimeout,
			Transport: &hostRewrite{from: defaultAPIHost, to: base, next: http.DefaultTransport},
		}
	}

	return &Client{
		http:         httpClient,
		graphURL:     graphURL,
		clientSecret: cfg.ClientSecret,
		provider:     provider,
	}
}

// AuthorizationURL returns the consent page URL carrying state.
func (c *Client) AuthorizationURL(state string) (string, error) {
	sess, err := c.provider.BeginAuth(state)
	if err != nil {
		return "", err
	}
	return sess.GetAuthURL()
}

// ExchangeCode trades an authorization code for a short-lived token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	_ = ctx
	sess, err := c.provider.BeginAuth("")
	if err != nil {
		return "", err
	}
	token, err := sess.Authorize(c.provider, url.Values{"code": {code}})
	if err != nil {
		return "", fmt.Errorf("instagram oauth: %w", err)
	}
	if token == "" {
		return "", errors.New("instagram oauth: empty access token")
	}
	return token, nil
}

func (c *Client) LongLivedToken(ctx context.Context, shortLived string) (*Token, error) {
	var tok Token
	err := c.get(ctx, "get long-lived token", "/access_token", url.Values{
		"grant_type":    {"ig_exchange_token"},
		"client_secret": {c.clientSecret},
		"access_token":  {shortLived},
	}, &tok)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (c *Client) RefreshToken(ctx context.Context, accessToken string) (*Token, error) {
	var tok Token
	err := c.get(ctx, "refresh token", "/refresh_access_token", url.Values{
		"grant_type":   {"ig_refresh_token"},
		"access_token": {accessToken},
	}, &tok)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (c *Client) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	var p Profile
	err := c.get(ctx, "get user profile", "/me", url.Values{
		"fields":       {"id,username,media_count"},
		"access_token": {accessToken},
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UserMedia returns up to limit of the latest posts of the token owner.
func (c *Client) UserMedia(ctx context.Context, accessToken string, limit int) ([]Media, error) {
	var page struct {
		Data []Media `json:"data"`
	}
	err := c.get(ctx, "get user media", "/me/media", url.Values{
		"fields":       {mediaFields},
		"limit":        {strconv.Itoa(limit)},
		"access_token": {accessToken},
	}, &page)
	if err != nil {
		return nil, err
	}
	return page.Data, nil
}

func (c *Client) MediaDetails(ctx context.Context, mediaID, accessToken string) (*Media, error) {
	var m Media
	err := c.get(ctx, "get media details", "/"+url.PathEscape(mediaID), url.Values{
		"fields":       {mediaFields},
		"access_token": {accessToken},
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreatePhotoContainer prepares an image for publishing and returns the
// container id.
func (c *Client) CreatePhotoContainer(ctx context.Context, accessToken, imageURL, caption string) (string, error) {
	form := url.Values{
		"image_url":    {imageURL},
		"access_token": {accessToken},
	}
	if caption != "" {
		form.Set("caption", caption)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "create photo container", "/me/media", form, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// PublishMedia publishes a container and returns the new media id.
func (c *Client) PublishMedia(ctx context.Context, accessToken, creationID string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.post(ctx, "publish media", "/me/media_publish", url.Values{
		"creation_id":  {creationID},
		"access_token": {accessToken},
	}, &out)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.graphURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(op, req, out)
}

func (c *Client) post(ctx context.Context, op, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, Status: resp.StatusCode, Message: errorMessage(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// errorMessage reads both Graph API ({"error":{"message"}}) and OAuth
// ({"error_message"}) error bodies.
func errorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		ErrorMessage string `json:"error_message"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Error.Message != "" {
			return e.Error.Message
		}
		if e.ErrorMessage != "" {
			return e.ErrorMessage
		}
	}
	return "Unknown error"
}

// hostRewrite sends requests for one host to another base URL.
type hostRewrite struct {
	from string
	to   *url.URL
	next http.RoundTripper
}

func (h *hostRewrite) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Host == h.from {
		r := req.Clone(req.Context())
		r.URL.Scheme = h.to.Scheme
		r.URL.Host = h.to.Host
		r.Host = h.to.Host
		req = r
	}
	return h.next.RoundTrip(req)
}
