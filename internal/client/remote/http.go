package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iudanet/inkpad/internal/models"
	"github.com/iudanet/inkpad/pkg/api"
)

// Client is the HTTP implementation of the remote object store
type Client struct {
	httpClient *http.Client
	creds      CredentialSource
	baseURL    string
}

// NewClient creates a new remote store client.
// creds may be nil for the unauthenticated auth endpoints only.
func NewClient(baseURL string, creds CredentialSource) *Client {
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовок Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	var resp api.RegisterResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/register", req, &resp, false); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", req, &resp, false); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Refresh обновляет access token по refresh token
func (c *Client) Refresh(ctx context.Context, req api.RefreshRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/refresh", req, &resp, false); err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	return &resp, nil
}

// Upsert creates or replaces a notebook snapshot on the server
func (c *Client) Upsert(ctx context.Context, notebook *models.Notebook) (*api.UpsertAck, error) {
	userID, err := c.creds.UserID(ctx)
	if err != nil {
		return nil, &Error{Op: "upsert", Kind: KindPermanent, Err: err}
	}

	body := api.NotebookFromModel(userID, notebook)

	var ack api.UpsertAck
	path := "/api/v1/notebooks/" + notebook.ID
	if err := c.doRequest(ctx, http.MethodPut, path, body, &ack, true); err != nil {
		return nil, err
	}
	return &ack, nil
}

// Delete removes a notebook by id
func (c *Client) Delete(ctx context.Context, notebookID string) (*api.UpsertAck, error) {
	var ack api.UpsertAck
	path := "/api/v1/notebooks/" + notebookID
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, &ack, true); err != nil {
		return nil, err
	}
	return &ack, nil
}

// ListAll returns every notebook owned by the current principal
func (c *Client) ListAll(ctx context.Context) ([]*models.Notebook, error) {
	var resp api.ListNotebooksResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/notebooks", nil, &resp, true); err != nil {
		return nil, err
	}

	notebooks := make([]*models.Notebook, 0, len(resp.Notebooks))
	for _, nb := range resp.Notebooks {
		notebooks = append(notebooks, nb.ToModel())
	}
	return notebooks, nil
}

// doRequest выполняет HTTP запрос и классифицирует ошибки
func (c *Client) doRequest(ctx context.Context, method, path string, body, result interface{}, authed bool) error {
	op := method + " " + path
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Kind: KindPermanent, Err: fmt.Errorf("failed to marshal request body: %w", err)}
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return &Error{Op: op, Kind: KindPermanent, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed {
		token, err := c.creds.AccessToken(ctx)
		if err != nil {
			return &Error{Op: op, Kind: KindPermanent, Err: fmt.Errorf("failed to get access token: %w", err)}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Таймауты, обрывы соединения, DNS - временные ошибки
		return transientErr(op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transientErr(op, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return statusErr(op, resp.StatusCode, fmt.Errorf("server error: %s", errResp.Error))
		}
		return statusErr(op, resp.StatusCode, fmt.Errorf("request failed: %s", string(respBody)))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &Error{Op: op, Kind: KindPermanent, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}

	return nil
}
