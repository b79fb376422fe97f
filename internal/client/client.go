// Package client is the REST side of the chat backend contract.
package client

import (
	"bytes"
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

	"chat-app/internal/dto"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	registerPath     = "/register"
	loginPath        = "/login"
	createRoomPath   = "/chatroom/create"
	listRoomsPath    = "/chatroom/list"
	roomMessagesPath = "/chatroom/messages"

	maxErrorBody = 4 << 10
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	Metrics    *Metrics
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	metrics *Metrics
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		metrics: cfg.Metrics,
	}, nil
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	body := dto.RegisterRequest{Username: username, Password: password}
	return c.do(ctx, "register", http.MethodPost, registerPath, nil, "", body, nil)
}

// Login returns the access token issued for the credentials.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp dto.LoginResponse
	body := dto.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, "login", http.MethodPost, loginPath, nil, "", body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", NewError(ErrorCodeProtocol, "login", "response carried no token", nil)
	}
	return resp.Token, nil
}

func (c *Client) CreateChatroom(ctx context.Context, token, name string) (int64, error) {
	var resp dto.CreateChatroomResponse
	body := dto.CreateChatroomRequest{Name: name}
	if err := c.do(ctx, "create_chatroom", http.MethodPost, createRoomPath, nil, token, body, &resp); err != nil {
		return 0, err
	}
	return resp.ChatroomID, nil
}

// ListChatrooms returns the rooms in server order.
func (c *Client) ListChatrooms(ctx context.Context, token string) ([]dto.Room, error) {
	var resp dto.ChatroomListResponse
	if err := c.do(ctx, "list_chatrooms", http.MethodGet, listRoomsPath, nil, token, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Chatrooms == nil {
		return []dto.Room{}, nil
	}
	return resp.Chatrooms, nil
}

// Messages returns the room history exactly as the server ordered it.
func (c *Client) Messages(ctx context.Context, token string, chatroomID int64) ([]dto.Message, error) {
	query := url.Values{"chatroom_id": []string{strconv.FormatInt(chatroomID, 10)}}

	var resp dto.MessagesResponse
	if err := c.do(ctx, "room_messages", http.MethodGet, roomMessagesPath, query, token, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Messages == nil {
		return []dto.Message{}, nil
	}
	return resp.Messages, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, token string, body, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return NewError(ErrorCodeValidation, op, "encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return NewError(ErrorCodeValidation, op, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(op, 0, time.Since(start))
		log.Debug().Err(err).Str("op", op).Str("request_id", reqID).Msg("request failed")
		return NewError(ErrorCodeTransport, op, "backend unreachable", err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(op, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serverMessage := readErrorMessage(resp.Body)
		log.Debug().
			Str("op", op).
			Str("request_id", reqID).
			Int("status", resp.StatusCode).
			Str("server_message", serverMessage).
			Msg("request rejected")
		return statusError(op, resp.StatusCode, serverMessage)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return NewError(ErrorCodeProtocol, op, "empty response body", err)
		}
		return NewError(ErrorCodeProtocol, op, "decode response", err)
	}
	return nil
}

// readErrorMessage pulls {"message": ...} out of an error body, falling back
// to the trimmed plain text the original backend sends via http.Error.
func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var apiErr dto.ErrorResponse
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return strings.TrimSpace(string(raw))
}
