package classifier

import (
	"log/slog"

	exif "github.com/dsoprea/go-exif/v3"
)

// Metadata is the EXIF subset relevant to manipulated images.
type Metadata struct {
	Software           string
	ProcessingSoftware string
	Make               string
	Model              string
	DateTime           string
}

// Edited reports whether an editing or processing tool left its name.
func (m Metadata) Edited() bool {
	return m.Software != "" || m.ProcessingSoftware != ""
}

// ReadMetadata extracts EXIF metadata from image bytes. Images without
// EXIF yield the zero Metadata and ok=false.
func ReadMetadata(data []byte) (Metadata, bool) {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return Metadata{}, false
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return Metadata{}, false
	}

	var m Metadata
	for _, entry := range entries {
		switch entry.TagName {
		case "Software":
			m.Software = entry.Formatted
		case "ProcessingSoftware":
			m.ProcessingSoftware = entry.Formatted
		case "Make":
			m.Make = entry.Formatted
		case "Model":
			m.Model = entry.Formatted
		case "DateTime", "DateTimeOriginal":
			if m.DateTime == "" {
				m.DateTime = entry.Formatted
			}
		}
	}
	return m, true
}

// LogMetadata logs the EXIF trail of an image when an editing tool is
// recorded in it.
func LogMetadata(logger *slog.Logger, identity string, data []byte) {
	m, ok := ReadMetadata(data)
	if !ok || !m.Edited() {
		return
	}
	logger.Info("image carries editing metadata",
		slog.String("identity", identity),
		slog.String("software", m.Software),
		slog.String("processing_software", m.ProcessingSoftware),
		slog.String("make", m.Make),
		slog.String("model", m.Model),
		slog.String("date_time", m.DateTime),
	)
}
