package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/quickienotes/quickie/internal/notes"
)

// Client is the HTTP implementation of Store. Calls are scoped by the
// bearer token, so the userID arguments are not sent on the wire; they are
// part of the Store contract and ignored here.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
}

type NotePayload struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	Attachments []notes.Attachment `json:"attachments"`
	CreatedAt   int64              `json:"created_at"`
	UpdatedAt   int64              `json:"updated_at"`
}

type NoteListResponse struct {
	Notes []NotePayload `json:"notes"`
}

type CreateNoteResponse struct {
	ID string `json:"id"`
}

type UploadResponse struct {
	URI string `json:"uri"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	req := LoginRequest{Email: email, Password: password}

	var resp LoginResponse
	if err := c.post(ctx, "/api/auth/login", req, &resp); err != nil {
		return nil, err
	}

	c.token = resp.Token
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, email, password string) (*LoginResponse, error) {
	req := LoginRequest{Email: email, Password: password}

	var resp LoginResponse
	if err := c.post(ctx, "/api/auth/register", req, &resp); err != nil {
		return nil, err
	}

	c.token = resp.Token
	return &resp, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

// Store implementation

func (c *Client) List(ctx context.Context, userID string) ([]notes.Note, error) {
	var resp NoteListResponse
	if err := c.get(ctx, "/api/notes", &resp); err != nil {
		return nil, err
	}

	list := make([]notes.Note, len(resp.Notes))
	for i, p := range resp.Notes {
		list[i] = payloadToNote(p)
	}
	return list, nil
}

func (c *Client) Create(ctx context.Context, userID string, n notes.Note) (string, error) {
	// The backend assigns the ID, so the payload never carries one.
	payload := NotePayload{
		Title:       n.Title,
		Content:     n.Content,
		Attachments: n.Attachments,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}

	var resp CreateNoteResponse
	if err := c.post(ctx, "/api/notes", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) Update(ctx context.Context, userID, id string, fields NoteFields) error {
	return c.put(ctx, "/api/notes/"+url.PathEscape(id), fields, nil)
}

func (c *Client) Delete(ctx context.Context, userID, id string) error {
	return c.del(ctx, "/api/notes/"+url.PathEscape(id))
}

func (c *Client) UploadAttachment(ctx context.Context, userID, noteID string, blob []byte, name, contentType string) (string, error) {
	path := attachmentPath(noteID, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(blob))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	var resp UploadResponse
	if err := c.doRequest(req, &resp); err != nil {
		return "", err
	}
	return resp.URI, nil
}

func (c *Client) DeleteAttachment(ctx context.Context, userID, noteID, name string) error {
	return c.del(ctx, attachmentPath(noteID, name))
}

func attachmentPath(noteID, name string) string {
	return "/api/notes/" + url.PathEscape(noteID) + "/attachments/" + url.PathEscape(name)
}

func payloadToNote(p NotePayload) notes.Note {
	atts := p.Attachments
	if atts == nil {
		atts = []notes.Attachment{}
	}
	return notes.Note{
		ID:          p.ID,
		Title:       p.Title,
		Content:     p.Content,
		Attachments: atts,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// HTTP helpers

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.doRequest(req, result)
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.send(ctx, http.MethodPost, path, body, result)
}

func (c *Client) put(ctx context.Context, path string, body, result interface{}) error {
	return c.send(ctx, http.MethodPut, path, body, result)
}

func (c *Client) send(ctx context.Context, method, path string, body, result interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, result)
}

func (c *Client) del(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.doRequest(req, nil)
}

func (c *Client) doRequest(req *http.Request, result interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
