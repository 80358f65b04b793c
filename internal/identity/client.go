package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-portal/internal/config"
	"github.com/spec-kit/staff-portal/internal/observability"
)

// Client talks to the Roblox users and thumbnails APIs. Every public method
// degrades to a negative result instead of returning an error.
type Client struct {
	httpClient    *http.Client
	usersURL      string
	thumbnailsURL string
	avatars       AvatarCache
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// ClientDependencies bundles optional collaborators for the client.
type ClientDependencies struct {
	HTTPClient *http.Client
	Avatars    AvatarCache
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewClient builds a client from config.
func NewClient(cfg config.RobloxConfig, deps ClientDependencies) *Client {
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout()}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient:    httpClient,
		usersURL:      strings.TrimRight(cfg.UsersBaseURL, "/"),
		thumbnailsURL: strings.TrimRight(cfg.ThumbnailsBaseURL, "/"),
		avatars:       deps.Avatars,
		metrics:       deps.Metrics,
		logger:        logger,
	}
}

// ResolveByUsername looks up the account id for name and then its full profile.
func (c *Client) ResolveByUsername(ctx context.Context, name string) (*Profile, bool) {
	profile, out := c.resolveByUsername(ctx, name)
	c.record("resolve_by_username", out, zap.String("username", name))
	return profile, out == outcomeOK
}

// ResolveByID fetches the profile for a Roblox user id.
func (c *Client) ResolveByID(ctx context.Context, id int64) (*Profile, bool) {
	profile, out := c.fetchUser(ctx, id)
	c.record("resolve_by_id", out, zap.Int64("roblox_id", id))
	return profile, out == outcomeOK
}

// FetchAvatar returns the headshot URL for id, consulting the cache first.
func (c *Client) FetchAvatar(ctx context.Context, id int64) (string, bool) {
	if c.avatars != nil {
		if cached, ok := c.avatars.GetAvatar(ctx, id); ok {
			return cached, true
		}
	}

	avatar, out := c.fetchAvatar(ctx, id)
	c.record("fetch_avatar", out, zap.Int64("roblox_id", id))
	if out != outcomeOK {
		return "", false
	}
	if c.avatars != nil {
		c.avatars.SetAvatar(ctx, id, avatar)
	}
	return avatar, true
}

// Validate checks that name belongs to an existing, unbanned account.
func (c *Client) Validate(ctx context.Context, name string) ValidationResult {
	profile, ok := c.ResolveByUsername(ctx, name)
	if !ok {
		return ValidationResult{Valid: false, Error: ErrUsernameNotFound}
	}
	if profile.IsBanned {
		return ValidationResult{Valid: false, Profile: profile, Error: ErrAccountBanned}
	}

	result := ValidationResult{Valid: true, Profile: profile}
	if avatar, ok := c.FetchAvatar(ctx, profile.ID); ok {
		result.AvatarURL = &avatar
	}
	return result
}

// ConfirmCodePresent re-reads the profile and reports whether code appears in
// its description. The match is case-sensitive.
func (c *Client) ConfirmCodePresent(ctx context.Context, id int64, code string) bool {
	if code == "" {
		return false
	}
	profile, ok := c.ResolveByID(ctx, id)
	if !ok {
		return false
	}
	return strings.Contains(profile.Description, code)
}

func (c *Client) resolveByUsername(ctx context.Context, name string) (*Profile, outcome) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, outcomeNotFound
	}

	body, err := json.Marshal(usernameLookupRequest{Usernames: []string{name}, ExcludeBannedUsers: false})
	if err != nil {
		return nil, outcomeTransient
	}

	var resp usernameLookupResponse
	if out := c.doJSON(ctx, http.MethodPost, c.usersURL+"/v1/usernames/users", body, &resp); out != outcomeOK {
		return nil, out
	}
	if len(resp.Data) == 0 {
		return nil, outcomeNotFound
	}
	return c.fetchUser(ctx, resp.Data[0].ID)
}

func (c *Client) fetchUser(ctx context.Context, id int64) (*Profile, outcome) {
	if id <= 0 {
		return nil, outcomeNotFound
	}
	var profile Profile
	endpoint := fmt.Sprintf("%s/v1/users/%d", c.usersURL, id)
	if out := c.doJSON(ctx, http.MethodGet, endpoint, nil, &profile); out != outcomeOK {
		return nil, out
	}
	if profile.ID == 0 {
		return nil, outcomeNotFound
	}
	return &profile, outcomeOK
}

func (c *Client) fetchAvatar(ctx context.Context, id int64) (string, outcome) {
	query := url.Values{}
	query.Set("userIds", strconv.FormatInt(id, 10))
	query.Set("size", "150x150")
	query.Set("format", "Png")
	query.Set("isCircular", "false")

	var resp thumbnailResponse
	endpoint := c.thumbnailsURL + "/v1/users/avatar-headshot?" + query.Encode()
	if out := c.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); out != outcomeOK {
		return "", out
	}
	for _, item := range resp.Data {
		if item.TargetID == id && item.ImageURL != "" && item.State == "Completed" {
			return item.ImageURL, outcomeOK
		}
	}
	return "", outcomeNotFound
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body []byte, dst any) outcome {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return outcomeTransient
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("roblox request failed", zap.String("url", endpoint), zap.Error(err))
		return outcomeTransient
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return outcomeNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Warn("roblox request rejected", zap.String("url", endpoint), zap.Int("status", resp.StatusCode))
		return outcomeTransient
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		c.logger.Warn("roblox response undecodable", zap.String("url", endpoint), zap.Error(err))
		return outcomeTransient
	}
	return outcomeOK
}

func (c *Client) record(operation string, out outcome, fields ...zap.Field) {
	c.metrics.RecordLookup(operation, out.String())
	fields = append(fields, zap.String("operation", operation), zap.String("outcome", out.String()))
	if out == outcomeTransient {
		c.logger.Warn("identity lookup unavailable", fields...)
		return
	}
	c.logger.Debug("identity lookup", fields...)
}
