// Package uploader batches validated records and forwards them to the
// cloud time-series service, with adaptive buffering, chunked retries,
// and a cycling protocol for records that could not be confirmed written.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"procem/pkg/measurement"
)

const (
	statusOK                  = 200
	statusCreated             = 201
	codeInsufficientPermission = 8001
)

// Response mirrors the subset of an IoT-Ticket write response the worker
// needs to classify a chunk's outcome.
type Response struct {
	StatusCode   int
	Code         int
	TotalWritten int
	Present      bool // false means no response was received for this chunk
}

// Client writes chunks of ticket records to the cloud service, following
// the "old" protocol: one HTTP POST per chunk, a JSON array body, and a
// JSON object response carrying totalWritten/code.
type Client interface {
	WriteChunk(ctx context.Context, deviceID string, chunk []measurement.TicketRecord) Response
}

// HTTPClient is the production Client, issuing HTTP Basic Auth POSTs.
type HTTPClient struct {
	BaseURL  string
	Username string
	Password string
	HTTP     *http.Client
}

// NewHTTPClient builds a Client with a bounded per-request timeout.
func NewHTTPClient(baseURL, username, password string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		BaseURL:  baseURL,
		Username: username,
		Password: password,
		HTTP:     &http.Client{Timeout: timeout},
	}
}

type writeResponseBody struct {
	Code         int `json:"code"`
	TotalWritten int `json:"totalWritten"`
}

// WriteChunk posts one chunk to the device's write-data resource. A
// transport-level failure yields a Response with Present=false, matching
// the original's "no responce" outcome; a body that is not JSON yields a
// present Response carrying only the status code.
func (c *HTTPClient) WriteChunk(ctx context.Context, deviceID string, chunk []measurement.TicketRecord) Response {
	url := fmt.Sprintf("%s/process/write/%s/", c.BaseURL, deviceID)

	body, err := json.Marshal(chunk)
	if err != nil {
		return Response{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.Username, c.Password)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Response{}
	}
	defer resp.Body.Close()

	var parsed writeResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Response{StatusCode: resp.StatusCode, Present: true}
	}

	return Response{
		StatusCode:   resp.StatusCode,
		Code:         parsed.Code,
		TotalWritten: parsed.TotalWritten,
		Present:      true,
	}
}
