// Package client implements the low-level REST client for the Galeria
// storefront API. It injects the bearer token, tags every request with a
// correlation ID, and decodes JSON responses. Callers map its errors onto
// their own domain errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/galeria-market/galeria-client/internal/common"
	"github.com/galeria-market/galeria-client/internal/models"
	"github.com/google/uuid"
)

// TokenSource supplies the current bearer token, or "" when the session is
// not authenticated. The session manager is the only implementation.
type TokenSource func(ctx context.Context) string

// Client communicates with the storefront REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized func()
}

// New creates a new client targeting the given storefront URL.
func New(baseURL string, timeout time.Duration, logger *common.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// SetTokenSource registers the token supplier for authenticated calls.
// Set once during wiring, before the client is used.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

// SetUnauthorizedHook registers a callback invoked whenever an authenticated
// call receives a 401. The session manager uses it to clear local session
// state, so every API-calling component shares the same forced-logout policy.
func (c *Client) SetUnauthorizedHook(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *Client) token(ctx context.Context) string {
	c.mu.RLock()
	ts := c.tokens
	c.mu.RUnlock()
	if ts == nil {
		return ""
	}
	return ts(ctx)
}

func (c *Client) notifyUnauthorized() {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// do issues one request and decodes the response into out (if non-nil).
// authed requests carry the bearer token; a 401 on an authed request fires
// the unauthorized hook before the error is returned. No retries.
func (c *Client) do(ctx context.Context, method, path string, payload, out any, authed bool) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	if authed {
		if token := c.token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response for %s %s: %v", ErrNetwork, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if authed && resp.StatusCode == http.StatusUnauthorized {
			c.logger.Warn().Str("path", path).Msg("authenticated request rejected with 401")
			c.notifyUnauthorized()
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: serverMessage(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response for %s %s: %w", method, path, err)
		}
	}
	return nil
}

// serverMessage extracts the {"message": ...} field the storefront returns on
// failures. Falls back to the raw body.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return string(body)
}

// LoginResult is the decoded response of a successful login. Older server
// builds named the token field differently; Token holds whichever was set.
type LoginResult struct {
	Token     string
	ExpiresIn int64 // seconds
}

// Login exchanges credentials for a bearer token.
// POST /api/users/login -> { accessToken|token|jwt, expiresIn }
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	payload := map[string]string{"username": username, "password": password}
	var result struct {
		AccessToken string `json:"accessToken"`
		Token       string `json:"token"`
		JWT         string `json:"jwt"`
		ExpiresIn   int64  `json:"expiresIn"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/users/login", payload, &result, false); err != nil {
		return nil, err
	}

	token := result.AccessToken
	if token == "" {
		token = result.Token
	}
	if token == "" {
		token = result.JWT
	}
	if token == "" {
		return nil, fmt.Errorf("login response carried no token")
	}
	return &LoginResult{Token: token, ExpiresIn: result.ExpiresIn}, nil
}

// Logout notifies the server that the session is over.
// POST /api/users/logout -> 2xx, body ignored
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/users/logout", nil, nil, true)
}

// Me fetches the profile of the authenticated user.
// GET /api/users/me -> UserProfile
func (c *Client) Me(ctx context.Context) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &profile, true); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Register creates a new user account.
// POST /api/users/register -> created UserProfile
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.do(ctx, http.MethodPost, "/api/users/register", req, &profile, false); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListNFTs fetches the full catalog. No authentication required.
// GET /api/nfts -> [NFT]
func (c *Client) ListNFTs(ctx context.Context) ([]models.NFT, error) {
	var nfts []models.NFT
	if err := c.do(ctx, http.MethodGet, "/api/nfts", nil, &nfts, false); err != nil {
		return nil, err
	}
	return nfts, nil
}

// GetNFT fetches a single catalog entry.
// GET /api/nfts/{id} -> NFT
func (c *Client) GetNFT(ctx context.Context, id int64) (*models.NFT, error) {
	var nft models.NFT
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/nfts/%d", id), nil, &nft, true); err != nil {
		return nil, err
	}
	return &nft, nil
}

// CreateNFT lists a new piece in the catalog (artist only).
// POST /api/nfts -> created NFT
func (c *Client) CreateNFT(ctx context.Context, nft models.NFT) (*models.NFT, error) {
	var created models.NFT
	if err := c.do(ctx, http.MethodPost, "/api/nfts", nft, &created, true); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateNFT replaces a catalog entry (artist only).
// PUT /api/nfts/{id} -> updated NFT
func (c *Client) UpdateNFT(ctx context.Context, id int64, nft models.NFT) (*models.NFT, error) {
	var updated models.NFT
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/nfts/%d", id), nft, &updated, true); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteNFT removes a catalog entry (artist only).
// DELETE /api/nfts/{id} -> 2xx
func (c *Client) DeleteNFT(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/nfts/%d", id), nil, nil, true)
}

// CartItemRef identifies one item in a cart mutation payload.
type CartItemRef struct {
	NFTID          int64 `json:"nftId"`
	PhysicalPieces int   `json:"physicalPieces"`
}

// CreateCartItem creates a new server-side cart holding the given item and
// returns the server-assigned cart id.
// POST /api/cart/items -> { cartId, ... }
func (c *Client) CreateCartItem(ctx context.Context, item CartItemRef) (string, error) {
	var result struct {
		CartID string `json:"cartId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/cart/items", item, &result, true); err != nil {
		return "", err
	}
	if result.CartID == "" {
		return "", fmt.Errorf("cart creation response carried no cartId")
	}
	return result.CartID, nil
}

// UpdateCart appends or updates items on an existing cart.
// PUT /api/cart/{cartId} with a JSON array of item refs -> updated cart
func (c *Client) UpdateCart(ctx context.Context, cartID string, items []CartItemRef) error {
	return c.do(ctx, http.MethodPut, "/api/cart/"+cartID, items, nil, true)
}

// GetCart fetches the authoritative cart contents.
// GET /api/cart/{cartId} -> { cartId, nfts: [...] }
func (c *Client) GetCart(ctx context.Context, cartID string) (*models.Cart, error) {
	var cart models.Cart
	if err := c.do(ctx, http.MethodGet, "/api/cart/"+cartID, nil, &cart, true); err != nil {
		return nil, err
	}
	if cart.CartID == "" {
		cart.CartID = cartID
	}
	return &cart, nil
}

// RemoveCartItem removes one item from the cart.
// DELETE /api/cart/{cartId}/items/{nftId} -> 2xx
func (c *Client) RemoveCartItem(ctx context.Context, cartID string, nftID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/cart/%s/items/%d", cartID, nftID), nil, nil, true)
}

// DeleteCart deletes the whole server-side cart.
// DELETE /api/cart/{cartId} -> 2xx
func (c *Client) DeleteCart(ctx context.Context, cartID string) error {
	return c.do(ctx, http.MethodDelete, "/api/cart/"+cartID, nil, nil, true)
}

// Checkout confirms the purchase of the cart and returns the receipt.
// POST /api/cart/checkout/{cartId} -> { cartId, confirmedAt, salePrice }
func (c *Client) Checkout(ctx context.Context, cartID string) (*models.SaleRecord, error) {
	var record models.SaleRecord
	if err := c.do(ctx, http.MethodPost, "/api/cart/checkout/"+cartID, nil, &record, true); err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateSale records a completed sale.
// POST /api/sales -> sale record
func (c *Client) CreateSale(ctx context.Context, record models.SaleRecord) (*models.SaleRecord, error) {
	var created models.SaleRecord
	if err := c.do(ctx, http.MethodPost, "/api/sales", record, &created, true); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListSales fetches the sales history for the authenticated user.
// GET /api/sales -> [sale record]
func (c *Client) ListSales(ctx context.Context) ([]models.SaleRecord, error) {
	var records []models.SaleRecord
	if err := c.do(ctx, http.MethodGet, "/api/sales", nil, &records, true); err != nil {
		return nil, err
	}
	return records, nil
}
