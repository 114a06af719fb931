package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/spyglasshq/spyglass/pkg/auth"
)

const defaultRequestTimeout = 30 * time.Second

// StatusError is a non-2xx backend answer, with the error payload's
// message when one was provided.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "api: unknown status error"
	}
	if e.Message != "" {
		return fmt.Sprintf("api: status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api: status %d", e.Code)
}

// Client is the typed client for the Spyglass backend REST API.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  auth.TokenProvider
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpc = hc
		}
	}
}

func NewClient(baseURL string, tokens auth.TokenProvider, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api: empty base URL")
	}
	if tokens == nil {
		return nil, errors.New("api: token provider is nil")
	}
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: defaultRequestTimeout},
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) ListSessions(ctx context.Context, workspaceID string) ([]SessionSummary, error) {
	raw, err := c.get(ctx, "/workspaces/"+url.PathEscape(workspaceID)+"/sessions")
	if err != nil {
		return nil, err
	}
	return decodeList[SessionSummary](raw)
}

func (c *Client) GetSession(ctx context.Context, id string) (*SessionDetail, error) {
	raw, err := c.get(ctx, "/sessions/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	var detail SessionDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, errors.Wrap(err, "api: decode session detail")
	}
	return &detail, nil
}

func (c *Client) SendMessage(ctx context.Context, req SendRequest) (*SendResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("api: empty message")
	}
	raw, err := c.do(ctx, http.MethodPost, "/messages", req)
	if err != nil {
		return nil, err
	}
	var resp SendResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, "api: decode send response")
	}
	if resp.TurnID == "" || resp.SessionID == "" {
		return nil, errors.New("api: send response is missing turn or session id")
	}
	return &resp, nil
}

func (c *Client) RenameSession(ctx context.Context, id string, title string) error {
	body := map[string]string{"title": title}
	_, err := c.do(ctx, http.MethodPatch, "/sessions/"+url.PathEscape(id), body)
	return err
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id), nil)
	return err
}

func (c *Client) SubmitFeedback(ctx context.Context, turnID string, score FeedbackScore) error {
	if !score.Valid() {
		return errors.Errorf("api: invalid feedback score %q", score)
	}
	body := map[string]string{"score": string(score)}
	_, err := c.do(ctx, http.MethodPost, "/turns/"+url.PathEscape(turnID)+"/feedback", body)
	return err
}

func (c *Client) ListServices(ctx context.Context, workspaceID string) ([]Service, error) {
	raw, err := c.get(ctx, "/workspaces/"+url.PathEscape(workspaceID)+"/services")
	if err != nil {
		return nil, err
	}
	return decodeList[Service](raw)
}

func (c *Client) ListEnvironments(ctx context.Context, workspaceID string) ([]Environment, error) {
	raw, err := c.get(ctx, "/workspaces/"+url.PathEscape(workspaceID)+"/environments")
	if err != nil {
		return nil, err
	}
	return decodeList[Environment](raw)
}

func (c *Client) ListAPIKeys(ctx context.Context, workspaceID string) ([]APIKey, error) {
	raw, err := c.get(ctx, "/workspaces/"+url.PathEscape(workspaceID)+"/api-keys")
	if err != nil {
		return nil, err
	}
	return decodeList[APIKey](raw)
}

func (c *Client) ListProviders(ctx context.Context, workspaceID string) ([]Provider, error) {
	raw, err := c.get(ctx, "/workspaces/"+url.PathEscape(workspaceID)+"/providers")
	if err != nil {
		return nil, err
	}
	return decodeList[Provider](raw)
}

func (c *Client) ListMembers(ctx context.Context, workspaceID string) ([]Member, error) {
	raw, err := c.get(ctx, "/workspaces/"+url.PathEscape(workspaceID)+"/members")
	if err != nil {
		return nil, err
	}
	return decodeList[Member](raw)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) do(ctx context.Context, method string, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "api: encode request body")
		}
		reader = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "api: %s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "api: read response of %s %s", method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug().Str("component", "api").Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("request failed")
		return nil, &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
	}
	return data, nil
}

func (c *Client) newRequest(ctx context.Context, method string, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "api: build request")
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "api: resolve token")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func errorMessage(data []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}
