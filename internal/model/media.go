package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MediaKind represents the kind of a tracked media element.
// Embedded frames that carry video are reported as MediaKindVideo.
type MediaKind int

const (
	// MediaKindImage is an <img> element large enough to be worth voting on.
	MediaKindImage MediaKind = iota

	// MediaKindVideo is a <video> element or a video-like <iframe>.
	MediaKindVideo
)

// String returns the lower-case kind name used on the wire.
func (k MediaKind) String() string {
	switch k {
	case MediaKindImage:
		return "image"
	case MediaKindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// ParseMediaKind converts a wire name back into a MediaKind.
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image":
		return MediaKindImage, nil
	case "video":
		return MediaKindVideo, nil
	default:
		return 0, fmt.Errorf("unknown media kind: %q", s)
	}
}

// MarshalJSON encodes the kind as its wire name.
func (k MediaKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a wire name.
func (k *MediaKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMediaKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// NoSource is reported for tracked elements without a resolvable source.
const NoSource = "N/A"

// EntryStatus is the status view of one tracked element.
// It never carries the live element reference.
type EntryStatus struct {
	// Kind is the media kind of the element.
	Kind MediaKind `json:"kind"`

	// Source is the resolved resource URL, or NoSource.
	Source string `json:"source"`
}
