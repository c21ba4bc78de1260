package model

import (
	"encoding/json"
	"testing"
)

func TestMediaKind(t *testing.T) {
	t.Parallel()

	t.Run("string", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			kind MediaKind
			want string
		}{
			{MediaKindImage, "image"},
			{MediaKindVideo, "video"},
			{MediaKind(42), "unknown"},
		}
		for _, tt := range tests {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("MediaKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
			}
		}
	})

	t.Run("parse", func(t *testing.T) {
		t.Parallel()

		if k, err := ParseMediaKind(" Video "); err != nil || k != MediaKindVideo {
			t.Errorf("expected video, got %v, %v", k, err)
		}
		if _, err := ParseMediaKind("audio"); err == nil {
			t.Error("expected error for unknown kind")
		}
	})

	t.Run("entry status json", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(EntryStatus{Kind: MediaKindVideo, Source: NoSource})
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != `{"kind":"video","source":"N/A"}` {
			t.Errorf("unexpected JSON %s", data)
		}

		var back EntryStatus
		if err := json.Unmarshal([]byte(`{"kind":"image","source":"x"}`), &back); err != nil {
			t.Fatal(err)
		}
		if back.Kind != MediaKindImage {
			t.Errorf("expected image, got %v", back.Kind)
		}
		if err := json.Unmarshal([]byte(`{"kind":"gif"}`), &back); err == nil {
			t.Error("expected error for unknown kind")
		}
	})
}
