package control

import (
	"encoding/json"
	"errors"

	"github.com/nao1215/mediatrack/internal/model"
)

var (
	// ErrNoListener is returned when no session accepts control connections.
	ErrNoListener = errors.New("no control listener")

	// ErrUnknownRequest is returned for request types the handler does not know.
	ErrUnknownRequest = errors.New("unknown request type")

	// ErrInvalidPayload is returned when a request payload cannot be decoded.
	ErrInvalidPayload = errors.New("invalid request payload")

	// ErrRequestFailed is returned by the client when the session reports an error.
	ErrRequestFailed = errors.New("control request failed")
)

// Type is the tag of a request.
type Type string

// Request types.
const (
	TypeStartDetection     Type = "START_DETECTION"
	TypeStopDetection      Type = "STOP_DETECTION"
	TypeGetDetectionStatus Type = "GET_DETECTION_STATUS"
	TypeGetImageData       Type = "GET_IMAGE_DATA"
	TypeGetClipboardImage  Type = "GET_CLIPBOARD_IMAGE"
	TypeGetArticleText     Type = "GET_ARTICLE_TEXT"
)

// Envelope frames every request and response.
type Envelope struct {
	ID      string          `json:"id"`
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ImageDataRequest is the payload of GET_IMAGE_DATA.
type ImageDataRequest struct {
	Src string `json:"src"`
}

// StartResponse answers START_DETECTION.
type StartResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// StopResponse answers STOP_DETECTION.
type StopResponse struct {
	Success bool `json:"success"`
}

// StatusResponse answers GET_DETECTION_STATUS.
type StatusResponse struct {
	Active  bool                `json:"active"`
	Count   int                 `json:"count"`
	Entries []model.EntryStatus `json:"entries"`
}

// ImageDataResponse answers GET_IMAGE_DATA. Exactly one field is set.
type ImageDataResponse struct {
	Base64 string `json:"base64,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ClipboardResponse answers GET_CLIPBOARD_IMAGE. Exactly one field is set.
type ClipboardResponse struct {
	ImageData string `json:"imageData,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ArticleTextResponse answers GET_ARTICLE_TEXT.
type ArticleTextResponse struct {
	Text string `json:"text"`
}
