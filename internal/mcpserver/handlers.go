package mcpserver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/book-expert/voice-mcp-service/internal/audio"
	"github.com/book-expert/voice-mcp-service/internal/params"
	"github.com/book-expert/voice-mcp-service/internal/references"
	"github.com/book-expert/voice-mcp-service/internal/synth"
)

// Tool reply templates. Clients parse these strings, so they are part of the
// tool contract and must stay stable.
const (
	msgFmtDecodeError     = "Error decoding audio: %v"
	msgFmtReferenceExists = "Error: Reference ID '%s' already exists. Use a different ID or delete the existing one first."
	msgFmtWriteError      = "Error %v"
	msgFmtGenericError    = "Error: %v"
	msgFmtUploadSuccess   = "Successfully uploaded reference audio with ID: %s\n" +
		"Audio saved to: %s\n" +
		"Text: %s"
	msgFmtSynthesisError   = "Error during synthesis: %v"
	msgFmtSynthesisSuccess = "Successfully synthesized speech!\n" +
		"Format: %s\n" +
		"Sample rate: %d Hz\n" +
		"Audio size: %d bytes\n" +
		"Parameters used: %s\n" +
		"\n" +
		"Base64-encoded audio:\n" +
		"%s"
	msgFmtListError  = "Error listing references: %v"
	msgNoReferences  = "No reference voices uploaded yet."
	msgFmtListHeader = "Available reference voices (%d):"
	msgFmtListEntry  = "- %s: %s [audio: %s]"

	audioPresentMark = "✓"
	audioMissingMark = "✗"
)

// Transcript preview lengths in the upload reply and the reference listing.
const (
	uploadTextPreviewLimit = 100
	listTextPreviewLimit   = 50
	truncationSuffix       = "..."
)

// UploadReferenceAudioParams are the inputs of the upload_reference_audio tool.
type UploadReferenceAudioParams struct {
	ReferenceID string `json:"reference_id" mcp:"Unique identifier for this reference voice"`
	AudioBase64 string `json:"audio_base64" mcp:"Base64-encoded WAV audio sample of the reference voice"`
	Text        string `json:"text"         mcp:"Transcript of what is said in the audio sample"`
}

// SynthesizeSpeechParams are the inputs of the synthesize_speech tool.
type SynthesizeSpeechParams struct {
	Text        string  `json:"text"                   mcp:"The text to convert to speech"`
	ReferenceID *string `json:"reference_id,omitempty" mcp:"Identifier of an uploaded reference voice to clone"`
	Format      *string `json:"format,omitempty"       mcp:"Output audio format: wav, mp3, or pcm (default: wav)"`
	Optimize    *bool   `json:"optimize,omitempty"     mcp:"Automatically pick parameters suited to the text (default: true)"`
}

// GetParameterRecommendationsParams are the inputs of the
// get_parameter_recommendations tool.
type GetParameterRecommendationsParams struct {
	Text    string  `json:"text"               mcp:"The text you plan to synthesize"`
	UseCase *string `json:"use_case,omitempty" mcp:"Intended delivery style: conversational, narrative, expressive, or stable (default: conversational)"`
}

// ListReferencesParams are the inputs of the list_references tool.
type ListReferencesParams struct{}

func (s *Server) handleUploadReference(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input UploadReferenceAudioParams,
) (*mcp.CallToolResult, any, error) {
	audioData, decodeErr := base64.StdEncoding.DecodeString(input.AudioBase64)
	if decodeErr != nil {
		return errorResult(fmt.Sprintf(msgFmtDecodeError, decodeErr)), nil, nil
	}

	voice, saveErr := s.references.Save(input.ReferenceID, audioData, input.Text)
	if saveErr != nil {
		return errorResult(uploadErrorText(input.ReferenceID, saveErr)), nil, nil
	}

	s.log.Info("Uploaded reference voice %s (%d audio bytes)", voice.ID, len(audioData))

	return textResult(fmt.Sprintf(
		msgFmtUploadSuccess,
		voice.ID,
		voice.AudioPath,
		truncateRunes(voice.Text, uploadTextPreviewLimit),
	)), nil, nil
}

func (s *Server) handleSynthesizeSpeech(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SynthesizeSpeechParams,
) (*mcp.CallToolResult, any, error) {
	// An absent format flows through as the zero value; the synthesis
	// pipeline applies the configured default.
	var format audio.Format

	if input.Format != nil && *input.Format != "" {
		parsed, parseErr := audio.ParseFormat(*input.Format)
		if parseErr != nil {
			return errorResult(fmt.Sprintf(msgFmtGenericError, parseErr)), nil, nil
		}

		format = parsed
	}

	referenceID := ""
	if input.ReferenceID != nil {
		referenceID = *input.ReferenceID
	}

	optimize := true
	if input.Optimize != nil {
		optimize = *input.Optimize
	}

	result, synthesisErr := s.synthesis.Synthesize(ctx, synth.Request{
		Text:        input.Text,
		ReferenceID: referenceID,
		Format:      format,
		Optimize:    optimize,
	})
	if synthesisErr != nil {
		return errorResult(fmt.Sprintf(msgFmtSynthesisError, synthesisErr)), nil, nil
	}

	return textResult(fmt.Sprintf(
		msgFmtSynthesisSuccess,
		result.Format,
		result.Info.SampleRate,
		len(result.Audio),
		params.Format(result.Params),
		base64.StdEncoding.EncodeToString(result.Audio),
	)), nil, nil
}

func (s *Server) handleGetParameterRecommendations(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetParameterRecommendationsParams,
) (*mcp.CallToolResult, any, error) {
	useCase := params.DefaultUseCase
	if input.UseCase != nil {
		useCase = params.ParseUseCase(*input.UseCase)
	}

	return textResult(params.Describe(input.Text, useCase)), nil, nil
}

func (s *Server) handleListReferences(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListReferencesParams,
) (*mcp.CallToolResult, any, error) {
	voices, listErr := s.references.List()
	if listErr != nil {
		return errorResult(fmt.Sprintf(msgFmtListError, listErr)), nil, nil
	}

	if len(voices) == 0 {
		return textResult(msgNoReferences), nil, nil
	}

	var builder strings.Builder

	fmt.Fprintf(&builder, msgFmtListHeader, len(voices))

	for _, voice := range voices {
		mark := audioMissingMark
		if voice.HasAudio {
			mark = audioPresentMark
		}

		builder.WriteString("\n")
		fmt.Fprintf(
			&builder,
			msgFmtListEntry,
			voice.ID,
			truncateRunes(voice.Text, listTextPreviewLimit),
			mark,
		)
	}

	return textResult(builder.String()), nil, nil
}

// uploadErrorText renders a reference save failure. Duplicate identifiers
// and write failures have fixed phrasings of their own; everything else
// falls back to the generic error template.
func uploadErrorText(referenceID string, saveErr error) string {
	switch {
	case errors.Is(saveErr, references.ErrAlreadyExists):
		return fmt.Sprintf(msgFmtReferenceExists, referenceID)
	case errors.Is(saveErr, references.ErrAudioWrite),
		errors.Is(saveErr, references.ErrTextWrite):
		return fmt.Sprintf(msgFmtWriteError, saveErr)
	default:
		return fmt.Sprintf(msgFmtGenericError, saveErr)
	}
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit]) + truncationSuffix
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
