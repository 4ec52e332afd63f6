// Package engine provides clients for the speech synthesis engine.
//
// Two engine flavors are supported: a standalone HTTP inference server
// (the common deployment) and a locally spawned binary for environments
// without a running server. Both produce raw audio bytes for a synthesis
// request and satisfy the same interface.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/voice-mcp-service/internal/audio"
	"github.com/book-expert/voice-mcp-service/internal/core"
)

// API endpoints and paths.
const (
	apiSynthesize = "/v1/tts"
	apiHealth     = "/v1/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	audioContentType  = "audio/"
)

// Default values.
const (
	defaultChunkLength = 200
	memoryCacheOff     = "off"
)

// Error messages.
const (
	errTextCannotBeEmpty       = "text cannot be empty"
	errReceivedEmptyAudio      = "received empty audio data"
	errFmtUnexpectedContent    = "unexpected content type: expected %s, got %s"
	errFmtEngineErrorWithCode  = "synthesis engine error (%s): %s (code: %s)"
	errFmtEngineNonOKStatus    = "synthesis engine returned non-OK status: %s, body: %s"
	errFmtHealthCheckStatus    = "health check failed with status: %s"
	errFmtHealthCheckTransport = "health check failed for engine at %s: %w"
)

// HTTPClient talks to a standalone synthesis engine over HTTP.
// It encapsulates the HTTP configuration and provides methods for
// speech synthesis and health monitoring.
type HTTPClient struct {
	httpClient  *http.Client
	baseURL     string
	chunkLength int
}

// apiRequest is the JSON payload the engine accepts. Audio bytes inside
// references marshal to base64 strings, matching the engine's wire format.
type apiRequest struct {
	Text              string         `json:"text"`
	ChunkLength       int            `json:"chunk_length"`
	Format            string         `json:"format"`
	References        []apiReference `json:"references"`
	ReferenceID       string         `json:"reference_id,omitempty"`
	Seed              *int           `json:"seed,omitempty"`
	UseMemoryCache    string         `json:"use_memory_cache"`
	Normalize         bool           `json:"normalize"`
	Streaming         bool           `json:"streaming"`
	MaxNewTokens      int            `json:"max_new_tokens"`
	TopP              float64        `json:"top_p"`
	RepetitionPenalty float64        `json:"repetition_penalty"`
	Temperature       float64        `json:"temperature"`
}

// apiReference is one in-band reference sample in an engine request.
type apiReference struct {
	Audio []byte `json:"audio"`
	Text  string `json:"text"`
}

// apiErrorResponse is the engine's structured error body.
type apiErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// Interface guard.
var _ core.SpeechSynthesizer = (*HTTPClient)(nil)

// NewHTTPClient creates and configures a client for the synthesis engine.
// The baseURL should include the protocol and port (e.g.,
// "http://localhost:8080"). The timeout applies to all HTTP requests made
// by this client. A chunkLength of zero selects the engine default.
func NewHTTPClient(baseURL string, timeout time.Duration, chunkLength int) *HTTPClient {
	if chunkLength <= 0 {
		chunkLength = defaultChunkLength
	}

	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		chunkLength: chunkLength,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize sends a synthesis request and returns the raw audio data.
// This method validates input at the boundary, constructs the HTTP request
// according to the engine's API contract, and handles both successful
// responses and structured error conditions.
//
// The returned bytes are in the requested format. Callers are responsible
// for encoding, storing, or streaming them as needed.
func (c *HTTPClient) Synthesize(
	ctx context.Context,
	req core.SynthesisRequest,
) ([]byte, error) {
	if req.Text == "" {
		return nil, errors.New(errTextCannotBeEmpty)
	}

	if req.Format == "" {
		req.Format = string(audio.FORMAT_WAV)
	}

	requestBody, marshalErr := json.Marshal(c.buildAPIRequest(req))
	if marshalErr != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", marshalErr)
	}

	url := c.baseURL + apiSynthesize

	httpReq, reqErr := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if reqErr != nil {
		return nil, fmt.Errorf("failed to create request: %w", reqErr)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, audioContentType+req.Format)

	resp, doErr := c.httpClient.Do(httpReq)
	if doErr != nil {
		return nil, fmt.Errorf(
			"failed to send request to engine at %s: %w",
			c.baseURL,
			doErr,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	// The engine labels payloads audio/<format>, but proxies may rewrite
	// subtype spellings (audio/mpeg for mp3). Any audio type is accepted.
	contentType := resp.Header.Get(headerContentType)
	if !strings.HasPrefix(contentType, audioContentType) {
		return nil, fmt.Errorf(
			errFmtUnexpectedContent,
			audioContentType+req.Format,
			contentType,
		)
	}

	audioData, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", readErr)
	}

	if len(audioData) == 0 {
		return nil, errors.New(errReceivedEmptyAudio)
	}

	return audioData, nil
}

// HealthCheck verifies that the synthesis engine is running and reachable.
// It performs a lightweight check against the engine health endpoint and
// returns an error if the engine is unavailable or reports unhealthy status.
//
// Health checks should be performed before accepting tool calls to fail
// fast and provide clear diagnostics when the engine is down.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	url := c.baseURL + apiHealth

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if reqErr != nil {
		return fmt.Errorf("failed to create health check request: %w", reqErr)
	}

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return fmt.Errorf(errFmtHealthCheckTransport, c.baseURL, doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf(errFmtHealthCheckStatus, resp.Status)
	}

	return nil
}

// buildAPIRequest maps a synthesis request onto the engine wire format.
func (c *HTTPClient) buildAPIRequest(req core.SynthesisRequest) apiRequest {
	references := make([]apiReference, 0, len(req.References))
	for _, ref := range req.References {
		references = append(references, apiReference{
			Audio: ref.Audio,
			Text:  ref.Text,
		})
	}

	return apiRequest{
		Text:              req.Text,
		ChunkLength:       c.chunkLength,
		Format:            req.Format,
		References:        references,
		ReferenceID:       req.ReferenceID,
		Seed:              nil,
		UseMemoryCache:    memoryCacheOff,
		Normalize:         req.Normalize,
		Streaming:         false,
		MaxNewTokens:      req.Params.MaxNewTokens,
		TopP:              req.Params.TopP,
		RepetitionPenalty: req.Params.RepetitionPenalty,
		Temperature:       req.Params.Temperature,
	}
}

// parseErrorResponse attempts to decode a structured JSON error from the
// engine. If structured parsing fails, it falls back to returning the raw
// response body so diagnostic information is preserved. The body is read
// up front because a failed decode would otherwise consume it.
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errorResp apiErrorResponse

	unmarshalErr := json.Unmarshal(body, &errorResp)
	if unmarshalErr == nil && errorResp.Detail != "" {
		return fmt.Errorf(errFmtEngineErrorWithCode,
			resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	return fmt.Errorf(
		errFmtEngineNonOKStatus,
		resp.Status,
		string(body),
	)
}
