// Package apiclient is a thin HTTP client for the Markboard API, used by the
// terminal editor.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type Board struct {
	ID       string   `json:"boardId"`
	AuthorID string   `json:"authorId"`
	Title    string   `json:"title"`
	IsPublic bool     `json:"isPublic"`
	Editors  []string `json:"editors"`
	Data     string   `json:"data"`
	// AutosaveDebounceMs is the server-advertised auto-save idle delay.
	AutosaveDebounceMs int `json:"autosaveDebounceMs"`
}

// SignIn authenticates and stores the access token for later calls.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	var response struct {
		AccessToken string `json:"accessToken"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    email,
		"password": password,
	}, &response)
	if err != nil {
		return err
	}
	c.token = response.AccessToken
	return nil
}

func (c *Client) GetBoard(ctx context.Context, boardID string) (Board, error) {
	var board Board
	err := c.do(ctx, http.MethodGet, "/api/boards/"+boardID, nil, &board)
	return board, err
}

func (c *Client) SaveBoardContent(ctx context.Context, boardID, content string) error {
	return c.do(ctx, http.MethodPut, "/api/boards/"+boardID+"/content", map[string]string{
		"content": content,
	}, nil)
}

func (c *Client) ListBoards(ctx context.Context) ([]Board, error) {
	var response struct {
		Boards []Board `json:"boards"`
	}
	err := c.do(ctx, http.MethodGet, "/api/boards", nil, &response)
	return response.Boards, err
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (%s)", method, path, apiErr.Error, apiErr.Code)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}
