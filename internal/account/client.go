package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/defi-staking/gateway/internal/linking"
	"github.com/defi-staking/gateway/internal/models"
	"go.uber.org/zap"
)

// Client talks to the account backend over its internal HTTP API. It holds
// the backend session token and a read-through cached copy of the account.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger

	mu      sync.RWMutex
	token   string
	account *models.Account
}

func NewClient(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

type authPayload struct {
	Token   string          `json:"token"`
	Account *models.Account `json:"account"`
}

type errorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (c *Client) Signup(ctx context.Context, email, password string, profile Profile) (*models.Account, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"username": profile.Username,
		"bio":      profile.Bio,
	}

	var out authPayload
	if err := c.do(ctx, http.MethodPost, "/internal/accounts/signup", body, false, &out); err != nil {
		return nil, err
	}

	c.setSession(out.Token, out.Account)
	return out.Account, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.Account, error) {
	body := map[string]any{"email": email, "password": password}

	var out authPayload
	if err := c.do(ctx, http.MethodPost, "/internal/accounts/login", body, false, &out); err != nil {
		return nil, err
	}

	c.setSession(out.Token, out.Account)
	return out.Account, nil
}

func (c *Client) UpdateProfile(ctx context.Context, fields ProfileUpdate) (*models.Account, error) {
	var out struct {
		Account *models.Account `json:"account"`
	}
	if err := c.do(ctx, http.MethodPut, "/internal/accounts/profile", fields, true, &out); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.account = out.Account
	c.mu.Unlock()
	return out.Account, nil
}

func (c *Client) LinkWalletAddress(ctx context.Context, proof linking.Proof) error {
	if err := c.do(ctx, http.MethodPost, "/internal/accounts/link-wallet", proof, true, nil); err != nil {
		return err
	}

	c.mu.Lock()
	if c.account != nil {
		addr := proof.Address
		c.account.WalletAddress = &addr
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) CheckUsernameAvailable(ctx context.Context, username string) (bool, error) {
	var out struct {
		Available bool `json:"available"`
	}
	path := "/internal/accounts/username-available?username=" + url.QueryEscape(username)
	if err := c.do(ctx, http.MethodGet, path, nil, false, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

func (c *Client) CurrentAccount() *models.Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.account == nil {
		return nil
	}
	cp := *c.account
	return &cp
}

func (c *Client) Logout() {
	c.mu.Lock()
	c.token = ""
	c.account = nil
	c.mu.Unlock()
}

func (c *Client) setSession(token string, acct *models.Account) {
	c.mu.Lock()
	c.token = token
	c.account = acct
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		c.mu.RLock()
		token := c.token
		c.mu.RUnlock()
		if token == "" {
			return ErrUnauthenticated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.translateError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *Client) translateError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var payload errorPayload
	_ = json.Unmarshal(raw, &payload)

	switch payload.Code {
	case "already_linked":
		return ErrAlreadyLinked
	case "email_taken":
		return ErrEmailTaken
	case "username_taken":
		return ErrUsernameTaken
	case "invalid_credentials":
		return ErrInvalidCredentials
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrInvalidCredentials
	}
	if payload.Error != "" {
		return fmt.Errorf("account backend: %s", payload.Error)
	}
	return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(raw))
}
