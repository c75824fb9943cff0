package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ResendClient sends mail through a Resend-compatible HTTP API.
type ResendClient struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

// NewResendClient creates a mail client reading the key from the named
// environment variable.
func NewResendClient(baseURL, apiKeyEnv string) *ResendClient {
	return &ResendClient{
		BaseURL: baseURL,
		APIKey:  os.Getenv(apiKeyEnv),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured checks if the API key is set.
func (r *ResendClient) IsConfigured() bool {
	return r.APIKey != ""
}

// Send posts one message to the /emails endpoint.
func (r *ResendClient) Send(ctx context.Context, msg Message) error {
	if r.APIKey == "" {
		return fmt.Errorf("mail API key not configured")
	}

	body := map[string]any{
		"from":    msg.From,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTMLBody,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.BaseURL+"/emails", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.APIKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail API returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
