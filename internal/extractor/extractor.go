// Package extractor calls the machine-learning feature extraction service.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hautex/visual-fashion-finder/internal/domain"
	"github.com/hautex/visual-fashion-finder/pkg/httpclient"
	"github.com/hautex/visual-fashion-finder/pkg/tracing"
	"github.com/hautex/visual-fashion-finder/pkg/validator"
)

// ServiceName identifies the ML service in errors, breaker metrics and logs.
const ServiceName = "ml-service"

// ExtractPath is the feature extraction endpoint relative to the service URL.
const ExtractPath = "/extract-features"

// FormField is the multipart field carrying the image.
const FormField = "file"

// maxResponseBytes bounds the decoded response body.
const maxResponseBytes = 1 << 20

// Doer executes outbound requests. *httpclient.CircuitBreakerClient
// satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Getter issues GET requests. *httpclient.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Client extracts garment features from images.
type Client struct {
	baseURL  string
	endpoint string
	http     Doer
	health   Getter
	logger   *slog.Logger
}

// New creates a client for the ML service rooted at baseURL. Extractions go
// through doer; Ping goes through health so readiness checks neither trip
// nor wait on the extraction breaker.
func New(baseURL string, doer Doer, health Getter, logger *slog.Logger) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL:  baseURL,
		endpoint: baseURL + ExtractPath,
		http:     doer,
		health:   health,
		logger:   logger,
	}
}

// response mirrors the ML service payload. Features is free-form: color,
// pattern and style are lifted out; every other key becomes an attribute.
type response struct {
	Features   map[string]json.RawMessage `json:"features"`
	Category   string                     `json:"category"`
	Confidence float64                    `json:"confidence"`
}

// Extract uploads img as multipart field "file" and returns the decoded,
// validated feature description.
func (c *Client) Extract(ctx context.Context, img domain.Image) (_ domain.FeatureDescription, err error) {
	ctx, span := tracing.StartSpan(ctx, "extractor", "extractor.extract",
		attribute.String("peer.service", ServiceName),
		attribute.Int("image.size", img.Size()),
		attribute.String("image.content_type", img.ContentType),
	)
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	body, contentType, err := encodeImage(img)
	if err != nil {
		return domain.FeatureDescription{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.FeatureDescription{}, fmt.Errorf("create extract request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	// Uploads are sent once: a replayed extraction would run the model again.
	req.GetBody = nil

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return domain.FeatureDescription{}, fmt.Errorf("call %s: %w", ServiceName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.FeatureDescription{}, httpclient.ParseResponseError(resp, ServiceName)
	}

	var payload response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return domain.FeatureDescription{}, fmt.Errorf("decode %s response: %w", ServiceName, err)
	}

	features, err := payload.toFeatures()
	if err != nil {
		return domain.FeatureDescription{}, fmt.Errorf("decode %s features: %w", ServiceName, err)
	}
	if err := validator.Validate(features); err != nil {
		return domain.FeatureDescription{}, fmt.Errorf("invalid %s response: %w", ServiceName, err)
	}

	span.SetAttributes(
		attribute.String("features.category", features.Category),
		attribute.String("features.color", features.Color.Primary),
		attribute.Float64("features.confidence", features.Confidence),
	)
	c.logger.DebugContext(ctx, "features extracted",
		slog.String("category", features.Category),
		slog.String("color", features.Color.Primary),
		slog.Float64("confidence", features.Confidence),
	)
	return features, nil
}

// Ping checks that the service answers on its root path.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.health.Get(ctx, c.baseURL+"/")
	if err != nil {
		return fmt.Errorf("ping %s: %w", ServiceName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpclient.ParseResponseError(resp, ServiceName)
	}
	return nil
}

func encodeImage(img domain.Image) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	filename := img.Filename
	if filename == "" {
		filename = "upload"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FormField, filename))
	header.Set("Content-Type", img.ContentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("write multipart part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func (r response) toFeatures() (domain.FeatureDescription, error) {
	f := domain.FeatureDescription{
		Category:   strings.TrimSpace(r.Category),
		Confidence: r.Confidence,
	}

	for key, raw := range r.Features {
		switch key {
		case "color":
			if err := json.Unmarshal(raw, &f.Color); err != nil {
				return f, fmt.Errorf("color: %w", err)
			}
		case "pattern":
			if err := json.Unmarshal(raw, &f.Pattern); err != nil {
				return f, fmt.Errorf("pattern: %w", err)
			}
		case "style":
			if err := json.Unmarshal(raw, &f.Style); err != nil {
				return f, fmt.Errorf("style: %w", err)
			}
		default:
			if f.Attributes == nil {
				f.Attributes = make(map[string]string)
			}
			f.Attributes[key] = attributeValue(raw)
		}
	}
	return f, nil
}

// attributeValue keeps strings as-is and other JSON values as their text.
func attributeValue(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}
