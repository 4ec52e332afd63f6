// Package transcribe provides a Whisper API client used to auto-fill the
// transcript of a reference voice sample when none is supplied.
package transcribe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/voice-mcp-service/internal/core"
)

// DefaultModel is the transcription model requested when the caller does
// not pick one.
const DefaultModel = "whisper-1"

const (
	transcriptionEndpoint = "https://api.openai.com/v1/audio/transcriptions"
	requestTimeout        = 60 * time.Second
)

// Error messages.
const (
	errFmtOpenFile        = "failed to open audio file: %w"
	errFmtCloseFile       = "Warning: failed to close file: %v"
	errFmtCreateFormFile  = "failed to create form file: %w"
	errFmtCopyFileData    = "failed to copy file data: %w"
	errFmtWriteModelField = "failed to write model field: %w"
	errFmtWriteLangField  = "failed to write language field: %w"
	errFmtCloseWriter     = "failed to close multipart writer: %w"
	errFmtCreateRequest   = "failed to create request: %w"
	errFmtCloseRespBody   = "Warning: failed to close response body: %v"
	errFmtMakeRequest     = "failed to make request: %w"
	errFmtRequestFailed   = "transcription request failed with status %d: %s"
	errFmtDecodeResponse  = "failed to decode response: %w"
)

// HTTP headers.
const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
)

// Form field names.
const (
	formFieldFile     = "file"
	formFieldModel    = "model"
	formFieldLanguage = "language"
)

const envOpenAIAPIKey = "OPENAI_API_KEY"

// ErrAPIKeyNotSet indicates the OPENAI_API_KEY environment variable is unset.
var ErrAPIKeyNotSet = errors.New("OPENAI_API_KEY environment variable not set")

// Client calls the Whisper transcription API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

var _ core.Transcriber = (*Client)(nil)

// transcriptionResponse is the JSON body of a successful transcription.
type transcriptionResponse struct {
	Text string `json:"text"`
}

// NewClient creates a transcription client using the given API key.
func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		apiKey:  apiKey,
		baseURL: transcriptionEndpoint,
	}
}

// NewClientFromEnv creates a transcription client with the API key from the
// environment.
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv(envOpenAIAPIKey)
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return NewClient(apiKey), nil
}

// TranscribeFile transcribes the audio file at audioPath. An empty language
// lets the API detect it.
func (c *Client) TranscribeFile(audioPath, model, language string) (string, error) {
	body, contentType, formErr := buildTranscriptionForm(audioPath, model, language)
	if formErr != nil {
		return "", formErr
	}

	request, requestErr := http.NewRequest(http.MethodPost, c.baseURL, body)
	if requestErr != nil {
		return "", fmt.Errorf(errFmtCreateRequest, requestErr)
	}

	request.Header.Set(headerAuthorization, "Bearer "+c.apiKey)
	request.Header.Set(headerContentType, contentType)

	response, doErr := c.httpClient.Do(request)
	if doErr != nil {
		return "", fmt.Errorf(errFmtMakeRequest, doErr)
	}

	defer func() {
		closeErr := response.Body.Close()
		if closeErr != nil {
			log.Printf(errFmtCloseRespBody, closeErr)
		}
	}()

	if response.StatusCode != http.StatusOK {
		responseBody, _ := io.ReadAll(response.Body)

		return "", fmt.Errorf(
			errFmtRequestFailed,
			response.StatusCode,
			string(responseBody),
		)
	}

	var transcription transcriptionResponse

	decodeErr := json.NewDecoder(response.Body).Decode(&transcription)
	if decodeErr != nil {
		return "", fmt.Errorf(errFmtDecodeResponse, decodeErr)
	}

	return transcription.Text, nil
}

// buildTranscriptionForm assembles the multipart request body for one audio
// file.
func buildTranscriptionForm(
	audioPath, model, language string,
) (*bytes.Buffer, string, error) {
	file, openErr := os.Open(audioPath)
	if openErr != nil {
		return nil, "", fmt.Errorf(errFmtOpenFile, openErr)
	}

	defer func() {
		closeErr := file.Close()
		if closeErr != nil {
			log.Printf(errFmtCloseFile, closeErr)
		}
	}()

	var buffer bytes.Buffer

	writer := multipart.NewWriter(&buffer)

	part, partErr := writer.CreateFormFile(formFieldFile, filepath.Base(audioPath))
	if partErr != nil {
		return nil, "", fmt.Errorf(errFmtCreateFormFile, partErr)
	}

	_, copyErr := io.Copy(part, file)
	if copyErr != nil {
		return nil, "", fmt.Errorf(errFmtCopyFileData, copyErr)
	}

	modelErr := writer.WriteField(formFieldModel, model)
	if modelErr != nil {
		return nil, "", fmt.Errorf(errFmtWriteModelField, modelErr)
	}

	if language != "" {
		languageErr := writer.WriteField(formFieldLanguage, language)
		if languageErr != nil {
			return nil, "", fmt.Errorf(errFmtWriteLangField, languageErr)
		}
	}

	closeErr := writer.Close()
	if closeErr != nil {
		return nil, "", fmt.Errorf(errFmtCloseWriter, closeErr)
	}

	return &buffer, writer.FormDataContentType(), nil
}
