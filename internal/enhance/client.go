// Package enhance sends captured stills to the Gemini image model with the
// fixed enhancement instruction and returns the image the model sends back.
//
// Enhancement is best effort: every failure (no credential, transport or API
// error, a response without an image) is logged and reported as "no result"
// so the capture pipeline keeps the original untouched.
package enhance

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/fpang/camera-sim/internal/assets"
	"github.com/fpang/camera-sim/internal/auth"
	"github.com/fpang/camera-sim/internal/filehandler"
	"github.com/fpang/camera-sim/internal/metrics"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used for enhancement.
const DefaultModel = "gemini-3-pro-image-preview"

// inputMIMEType is declared for every still sent; captures are always JPEG.
const inputMIMEType = "image/jpeg"

// fallbackMIMEType is used when the model omits the output MIME type.
const fallbackMIMEType = "image/png"

// errNoImage is returned internally when the response carries no image part.
var errNoImage = errors.New("no image in model response")

// Client calls the remote model. A Client without a generator is disabled
// and returns no result for every call.
type Client struct {
	gen         auth.ContentGenerator
	model       string
	instruction string
}

// New wraps gen. A nil gen yields a disabled client; an empty model selects
// DefaultModel.
func New(gen auth.ContentGenerator, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		gen:         gen,
		model:       model,
		instruction: assets.EnhanceInstruction(),
	}
}

// NewClient creates a Gemini API client for apiKey. An empty key is not an
// error: the returned client is disabled.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		log.Warn().Msg("No Gemini API key configured, enhancement disabled")
		return New(nil, model), nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return New(client.Models, model), nil
}

// Available reports whether a credential was configured.
func (c *Client) Available() bool {
	return c != nil && c.gen != nil
}

// Validate checks the credential with a minimal request. It returns an
// *auth.ValidationError describing the failure.
func (c *Client) Validate(ctx context.Context) error {
	if !c.Available() {
		return &auth.ValidationError{Type: auth.ErrTypeNoKey, Message: "no Gemini API key configured"}
	}
	return auth.ValidateAPIKey(ctx, c.gen)
}

// Model returns the model ID sent with each request.
func (c *Client) Model() string {
	return c.model
}

// Enhance takes a base64 image, optionally framed as a
// data:image/(png|jpeg|jpg);base64, URI, and returns the enhanced image as a
// data URI. The second result is false when there is no enhanced image.
func (c *Client) Enhance(ctx context.Context, encodedImage string) (string, bool) {
	if !c.Available() {
		log.Debug().Msg("Enhancement skipped: no API key")
		return "", false
	}

	raw := filehandler.StripCaptureDataURIPrefix(encodedImage)
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		log.Error().Err(err).Msg("Enhancement input is not valid base64")
		return "", false
	}

	out, ok := c.EnhancePayload(ctx, filehandler.Payload{MIMEType: inputMIMEType, Data: data})
	if !ok {
		return "", false
	}
	return out.DataURI(), true
}

// EnhancePayload is Enhance for already-decoded bytes.
func (c *Client) EnhancePayload(ctx context.Context, in filehandler.Payload) (filehandler.Payload, bool) {
	if !c.Available() {
		log.Debug().Msg("Enhancement skipped: no API key")
		return filehandler.Payload{}, false
	}

	start := time.Now()
	log.Info().
		Str("model", c.model).
		Int("image_bytes", len(in.Data)).
		Msg("Sending image to Gemini for enhancement")

	out, err := c.generate(ctx, in.Data)
	elapsed := time.Since(start)

	result := "success"
	switch {
	case errors.Is(err, errNoImage):
		result = "no_image"
	case err != nil:
		result = "error"
	}
	metrics.New(metrics.Namespace).
		Dimension("Result", result).
		Metric("EnhanceMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("EnhanceResult").
		Property("model", c.model).
		Flush()

	if err != nil {
		log.Error().Err(err).Str("model", c.model).Dur("duration", elapsed).Msg("Gemini enhancement failed")
		return filehandler.Payload{}, false
	}

	log.Info().
		Str("mime_type", out.MIMEType).
		Int("image_bytes", len(out.Data)).
		Dur("duration", elapsed).
		Msg("Gemini enhancement complete")
	return out, true
}

func (c *Client) generate(ctx context.Context, image []byte) (filehandler.Payload, error) {
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: c.instruction},
			{InlineData: &genai.Blob{MIMEType: inputMIMEType, Data: image}},
		},
	}}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := c.gen.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return filehandler.Payload{}, fmt.Errorf("generate content: %w", err)
	}
	return firstImage(resp)
}

// firstImage returns the first inline image of the first candidate.
func firstImage(resp *genai.GenerateContentResponse) (filehandler.Payload, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return filehandler.Payload{}, errNoImage
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if mime == "" {
			mime = fallbackMIMEType
		}
		return filehandler.Payload{MIMEType: mime, Data: part.InlineData.Data}, nil
	}
	return filehandler.Payload{}, errNoImage
}
