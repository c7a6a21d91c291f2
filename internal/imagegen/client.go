// Package imagegen turns text prompts into images with the Gemini API.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/m3rciful/imagebot/core/logger"
	"github.com/m3rciful/imagebot/core/netutil"
)

const (
	defaultMIMEType = "image/png"
	defaultTimeout  = 3 * time.Minute
)

// ErrUnavailable is returned by Generate when no API key is configured.
var ErrUnavailable = errors.New("imagegen: gemini api key not configured")

// Config holds the Gemini settings.
type Config struct {
	APIKey string `yaml:"api_key" envconfig:"GEMINI_API_KEY"`
	// Timeout bounds one generation request; 0 uses three minutes.
	Timeout time.Duration `yaml:"timeout" envconfig:"GEMINI_TIMEOUT"`
}

// Request describes one image to generate.
type Request struct {
	Prompt      string
	AspectRatio string
	ImageSize   string
	Model       string
}

// Image is a generated image.
type Image struct {
	Data      []byte
	MIMEType  string
	Extension string
}

// FileName returns the upload name, "generated-image.<ext>".
func (img *Image) FileName() string {
	ext := img.Extension
	if ext == "" {
		ext = Extension(img.MIMEType)
	}
	return "generated-image." + ext
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client calls the Gemini API. A Client without an API key reports itself unavailable.
type Client struct {
	models  contentGenerator
	timeout time.Duration
}

// New builds a Client. An empty API key is not an error: the client is
// returned unavailable and a warning is logged.
func New(ctx context.Context, cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		logger.Warn(ctx, logger.CompImages, "imagegen.disabled", slog.String("reason", "GEMINI_API_KEY not set"))
		return &Client{timeout: timeout}, nil
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
		// Generation is attempted once; the header wait covers the whole render.
		HTTPClient: netutil.BuildHTTPClient(netutil.ClientOptions{
			Timeout:               timeout,
			ResponseHeaderTimeout: timeout,
			MaxRetries:            -1,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("imagegen: create genai client: %w", err)
	}
	return newClient(gc.Models, timeout), nil
}

func newClient(models contentGenerator, timeout time.Duration) *Client {
	return &Client{models: models, timeout: timeout}
}

// IsAvailable reports whether an API key was configured. It does not touch the network.
func (c *Client) IsAvailable() bool {
	return c != nil && c.models != nil
}

// Generate renders req. It returns (nil, nil) when the model answered without
// an image, and an error when the call failed or the answer was blocked.
func (c *Client) Generate(ctx context.Context, req Request) (*Image, error) {
	if !c.IsAvailable() {
		return nil, ErrUnavailable
	}
	req = withDefaults(req)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	attrs := []slog.Attr{
		slog.String("model", req.Model),
		slog.String("aspect_ratio", req.AspectRatio),
		slog.String("image_size", req.ImageSize),
		slog.Int("prompt_len", len([]rune(req.Prompt))),
	}
	resp, err := c.models.GenerateContent(ctx, req.Model,
		[]*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)},
		generateConfig(req),
	)
	if err != nil {
		logger.Warn(ctx, logger.CompImages, "imagegen.generate",
			append(attrs, slog.String("status", "fail"), slog.Duration("duration", logger.Took(start)), logger.Err(err))...)
		return nil, fmt.Errorf("imagegen: generate content: %w", err)
	}

	img, err := extractImage(resp)
	switch {
	case err != nil:
		logger.Warn(ctx, logger.CompImages, "imagegen.generate",
			append(attrs, slog.String("status", "fail"), slog.Duration("duration", logger.Took(start)), logger.Err(err))...)
		return nil, err
	case img == nil:
		logger.Warn(ctx, logger.CompImages, "imagegen.generate",
			append(attrs, slog.String("status", "ok"), slog.String("outcome", "no_image"), slog.Duration("duration", logger.Took(start)))...)
		return nil, nil
	}
	logger.Info(ctx, logger.CompImages, "imagegen.generate",
		append(attrs,
			slog.String("status", "ok"),
			slog.String("mime_type", img.MIMEType),
			slog.Int("bytes", len(img.Data)),
			slog.Duration("duration", logger.Took(start)),
		)...)
	return img, nil
}

func withDefaults(req Request) Request {
	if req.AspectRatio == "" {
		req.AspectRatio = DefaultAspectRatio
	}
	if req.ImageSize == "" {
		req.ImageSize = DefaultImageSize
	}
	if req.Model == "" {
		req.Model = DefaultModel
	}
	return req
}

func generateConfig(req Request) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: req.AspectRatio,
			ImageSize:   req.ImageSize,
		},
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
}

// extractImage returns the first inline image of the first candidate.
func extractImage(resp *genai.GenerateContentResponse) (*Image, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, nil
	}
	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mimeType := strings.TrimSpace(part.InlineData.MIMEType)
			if mimeType == "" {
				mimeType = defaultMIMEType
			}
			return &Image{
				Data:      part.InlineData.Data,
				MIMEType:  mimeType,
				Extension: Extension(mimeType),
			}, nil
		}
	}
	switch candidate.FinishReason {
	case "", genai.FinishReasonUnspecified, genai.FinishReasonStop, genai.FinishReasonMaxTokens:
		return nil, nil
	}
	return nil, fmt.Errorf("imagegen: generation stopped: %s", candidate.FinishReason)
}

var knownExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Extension maps a media type to a file extension, "png" when unknown.
func Extension(mimeType string) string {
	base, _, _ := strings.Cut(strings.ToLower(mimeType), ";")
	base = strings.TrimSpace(base)
	if ext, ok := knownExtensions[base]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(base); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return "png"
}
