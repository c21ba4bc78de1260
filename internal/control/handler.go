package control

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nao1215/mediatrack/internal/model"
	"github.com/nao1215/mediatrack/internal/session"
)

// Handler executes control requests against a session.
// *session.Controller implements it.
type Handler interface {
	Start(ctx context.Context) (int, error)
	Stop(ctx context.Context) error
	Status(ctx context.Context) (session.Status, error)
	ImageData(ctx context.Context, src string) (string, error)
	ClipboardImage(ctx context.Context) (string, error)
	ArticleText(ctx context.Context) (string, error)
}

var _ Handler = (*session.Controller)(nil)

// handlerFunc answers one request type.
type handlerFunc func(ctx context.Context, h Handler, payload json.RawMessage) (any, error)

// handlers maps each request type to its implementation.
var handlers = map[Type]handlerFunc{
	TypeStartDetection:     handleStart,
	TypeStopDetection:      handleStop,
	TypeGetDetectionStatus: handleStatus,
	TypeGetImageData:       handleImageData,
	TypeGetClipboardImage:  handleClipboard,
	TypeGetArticleText:     handleArticleText,
}

// Dispatch answers req with h. The returned envelope always carries the
// request id; failures are reported in its error field.
func Dispatch(ctx context.Context, h Handler, req Envelope) Envelope {
	resp := Envelope{ID: req.ID, Type: req.Type}

	fn, ok := handlers[req.Type]
	if !ok {
		resp.Error = fmt.Sprintf("%s: %q", ErrUnknownRequest, req.Type)
		return resp
	}

	result, err := fn(ctx, h, req.Payload)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}

	data, err := json.Marshal(result)
	if err != nil {
		resp.Error = fmt.Sprintf("failed to encode response: %v", err)
		return resp
	}
	resp.Payload = data
	return resp
}

func handleStart(ctx context.Context, h Handler, _ json.RawMessage) (any, error) {
	count, err := h.Start(ctx)
	if err != nil {
		return nil, err
	}
	return StartResponse{Success: true, Count: count}, nil
}

func handleStop(ctx context.Context, h Handler, _ json.RawMessage) (any, error) {
	if err := h.Stop(ctx); err != nil {
		return nil, err
	}
	return StopResponse{Success: true}, nil
}

func handleStatus(ctx context.Context, h Handler, _ json.RawMessage) (any, error) {
	st, err := h.Status(ctx)
	if err != nil {
		return nil, err
	}
	entries := st.Entries
	if entries == nil {
		entries = []model.EntryStatus{}
	}
	return StatusResponse{Active: st.Active, Count: st.Count, Entries: entries}, nil
}

func handleImageData(ctx context.Context, h Handler, payload json.RawMessage) (any, error) {
	var req ImageDataRequest
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: missing src", ErrInvalidPayload)
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	data, err := h.ImageData(ctx, req.Src)
	if err != nil {
		return ImageDataResponse{Error: err.Error()}, nil
	}
	return ImageDataResponse{Base64: data}, nil
}

func handleClipboard(ctx context.Context, h Handler, _ json.RawMessage) (any, error) {
	data, err := h.ClipboardImage(ctx)
	if err != nil {
		return ClipboardResponse{Error: err.Error()}, nil
	}
	return ClipboardResponse{ImageData: data}, nil
}

func handleArticleText(ctx context.Context, h Handler, _ json.RawMessage) (any, error) {
	text, err := h.ArticleText(ctx)
	if err != nil {
		return nil, err
	}
	return ArticleTextResponse{Text: text}, nil
}
