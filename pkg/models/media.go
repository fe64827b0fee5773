package models

import (
	"mime"
	"path/filepath"
	"strings"
)

// Mode is the detection flow derived from the selected file's content type
type Mode int

const (
	ModeUnset Mode = iota
	ModeImage
	ModeVideo
)

func (m Mode) String() string {
	switch m {
	case ModeImage:
		return "image"
	case ModeVideo:
		return "video"
	default:
		return "unset"
	}
}

// ModeForContentType classifies a declared MIME type by its prefix.
// Anything that is neither image nor video yields ModeUnset.
func ModeForContentType(contentType string) Mode {
	switch {
	case strings.HasPrefix(contentType, "image"):
		return ModeImage
	case strings.HasPrefix(contentType, "video"):
		return ModeVideo
	default:
		return ModeUnset
	}
}

// SelectedFile is the file the user picked: raw bytes plus the declared MIME type
type SelectedFile struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// ContentTypeForName declares a content type from the file extension, the
// same way a browser fills in File.type. Unknown extensions yield "".
func ContentTypeForName(name string) string {
	return mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
