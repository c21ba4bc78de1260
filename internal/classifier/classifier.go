package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/nao1215/mediatrack/internal/imaging"
	"github.com/nao1215/mediatrack/internal/log"
)

// DefaultEndpoint is the classifier's local development address.
const DefaultEndpoint = "http://127.0.0.1:8000/api/detect/"

// Upload field and file name expected by the service.
const (
	FieldName = "file"
	FileName  = "image.jpg"
)

// DeepfakeThreshold is the probability at or above which an image is
// labelled a likely deepfake.
const DeepfakeThreshold = 0.5

// Display texts.
const (
	AnalyzingText       = "Analyzing..."
	InvalidResponseText = "Error: Invalid response"
	FailedText          = "Error analyzing image"
	DeepfakeLabel       = "Likely Deepfake"
	RealLabel           = "Likely Real"
)

// maxResponseSize bounds the classifier reply.
const maxResponseSize = 1 << 20

var (
	// ErrRequestFailed is returned when the classifier cannot be reached.
	ErrRequestFailed = errors.New("classifier request failed")

	// ErrInvalidResponse is returned when the reply has no usable probability.
	ErrInvalidResponse = errors.New("invalid classifier response")

	// ErrEmptyImage is returned when there are no bytes to upload.
	ErrEmptyImage = errors.New("image is empty")
)

// Result is a classifier verdict.
type Result struct {
	// FakeProbability is the probability in [0, 1] that the image is fake.
	FakeProbability float64 `json:"fake_probability"`
}

// LikelyDeepfake reports whether the probability reaches DeepfakeThreshold.
func (r Result) LikelyDeepfake() bool {
	return r.FakeProbability >= DeepfakeThreshold
}

// Label returns the verdict label.
func (r Result) Label() string {
	if r.LikelyDeepfake() {
		return DeepfakeLabel
	}
	return RealLabel
}

// Percent formats the probability as a percentage with one decimal.
func (r Result) Percent() string {
	return strconv.FormatFloat(r.FakeProbability*100, 'f', 1, 64)
}

// String returns the display text, e.g. "73.0% - Likely Deepfake".
func (r Result) String() string {
	return r.Percent() + "% - " + r.Label()
}

// DisplayText maps a Detect outcome to the text shown in the overlay.
func DisplayText(res Result, err error) string {
	switch {
	case err == nil:
		return res.String()
	case errors.Is(err, ErrInvalidResponse):
		return InvalidResponseText
	default:
		return FailedText
	}
}

// Client talks to the classifier service.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// NewClient creates a Client posting to endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the classifier URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Detect uploads a JPEG and returns the verdict.
func (c *Client) Detect(ctx context.Context, jpeg []byte) (Result, error) {
	if len(jpeg) == 0 {
		return Result{}, ErrEmptyImage
	}

	body, contentType, err := multipartBody(jpeg)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("sending image to classifier", "endpoint", c.endpoint, "bytes", len(jpeg))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	c.logger.Debug("classifier responded", "status", resp.StatusCode)

	return parseResult(data)
}

// parseResult accepts only a numeric fake_probability within [0, 1].
// The status code is not consulted: a well-formed verdict is used as is.
func parseResult(data []byte) (Result, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	raw, ok := fields["fake_probability"]
	if !ok {
		return Result{}, fmt.Errorf("%w: missing fake_probability", ErrInvalidResponse)
	}

	var v *float64
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return Result{}, fmt.Errorf("%w: fake_probability is not a number", ErrInvalidResponse)
	}
	p := *v
	if p < 0 || p > 1 {
		return Result{}, fmt.Errorf("%w: fake_probability %v out of range", ErrInvalidResponse, p)
	}
	return Result{FakeProbability: p}, nil
}

func multipartBody(jpeg []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldName, FileName))
	header.Set("Content-Type", imaging.MIMEJPEG)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(jpeg); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
