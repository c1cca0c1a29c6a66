package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/oshiwatch/oshiwatch/internal/domain"
)

const defaultPDS = "https://bsky.social"

// Client is a minimal Bluesky/AT Protocol XRPC client covering session
// login and profile hydration.
type Client struct {
	pds        string
	httpClient *http.Client
	limiter    *rate.Limiter

	// populated after Login
	accessJwt string
	did       string
}

// NewClient creates a new Bluesky API client. If pds is empty, it defaults
// to https://bsky.social.
func NewClient(pds string) *Client {
	if pds == "" {
		pds = defaultPDS
	}
	return &Client{
		pds: pds,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		// A resolver flush fans out several getProfiles batches at once;
		// 10 req/s with a matching burst stays under the API ceiling.
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
	}
}

// Login authenticates with the PDS and stores the session token. Use an App
// Password, not your account password.
func (c *Client) Login(ctx context.Context, identifier, password string) error {
	body := map[string]string{
		"identifier": identifier,
		"password":   password,
	}

	var resp createSessionResponse
	if err := c.post(ctx, "/xrpc/com.atproto.server.createSession", body, &resp); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	c.accessJwt = resp.AccessJwt
	c.did = resp.DID
	return nil
}

// DID returns the authenticated user's DID. Only valid after Login.
func (c *Client) DID() string {
	return c.did
}

// GetProfiles fetches up to domain.MaxProfileBatch actor profiles by DID
// via app.bsky.actor.getProfiles. DIDs the service does not know are absent
// from the result.
func (c *Client) GetProfiles(ctx context.Context, dids []string) ([]domain.Profile, error) {
	if c.accessJwt == "" {
		return nil, fmt.Errorf("not authenticated: call Login first")
	}
	if len(dids) == 0 {
		return nil, nil
	}
	if len(dids) > domain.MaxProfileBatch {
		return nil, fmt.Errorf("at most %d actors per call, got %d", domain.MaxProfileBatch, len(dids))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	for _, did := range dids {
		query.Add("actors", did)
	}

	var resp getProfilesResponse
	if err := c.get(ctx, "/xrpc/app.bsky.actor.getProfiles", query, &resp); err != nil {
		return nil, fmt.Errorf("get profiles: %w", err)
	}

	profiles := make([]domain.Profile, len(resp.Profiles))
	for i, p := range resp.Profiles {
		profiles[i] = domain.Profile{
			DID:         p.DID,
			Handle:      p.Handle,
			DisplayName: p.DisplayName,
			Description: p.Description,
		}
	}
	return profiles, nil
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pds+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessJwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessJwt)
	}

	return c.do(req, result)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pds+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.accessJwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessJwt)
	}

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

type createSessionResponse struct {
	AccessJwt string `json:"accessJwt"`
	DID       string `json:"did"`
	Handle    string `json:"handle"`
}

type getProfilesResponse struct {
	Profiles []profileView `json:"profiles"`
}

// profileView is the subset of app.bsky.actor.defs#profileViewDetailed the
// tracker reads. Absent optional fields stay nil.
type profileView struct {
	DID         string  `json:"did"`
	Handle      string  `json:"handle"`
	DisplayName *string `json:"displayName"`
	Description *string `json:"description"`
}
