package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// postJSON issues a JSON POST and decodes the response into out, wrapping
// any failure as a CollaboratorError for the named service.
func postJSON(ctx context.Context, service, url string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &CollaboratorError{Service: service, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &CollaboratorError{Service: service, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return &CollaboratorError{Service: service, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &CollaboratorError{Service: service, Err: fmt.Errorf("status code %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &CollaboratorError{Service: service, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
