package models

import (
	"strconv"
	"strings"
)

// Comparable metadata field names, in the order they are diffed.
const (
	FieldFilename    = "filename"
	FieldCreatedTime = "created_time"
	FieldWidth       = "width"
	FieldHeight      = "height"
	FieldMimeType    = "mime_type"
)

// ComparableFields lists the only fields considered when two items with the same ID are diffed.
var ComparableFields = []string{FieldFilename, FieldCreatedTime, FieldWidth, FieldHeight, FieldMimeType}

// Item represents one media item (photo or video) in a remote catalog.
//
// The ID is assigned by the remote system and is the join key between catalogs.
// Items are values: the engine never mutates one after a catalog read.
type Item struct {
	ID          string `json:"id" yaml:"id"`
	Filename    string `json:"filename" yaml:"filename"`
	CreatedTime string `json:"created_time" yaml:"created_time"` // ISO-8601
	Width       int    `json:"width" yaml:"width"`
	Height      int    `json:"height" yaml:"height"`
	MimeType    string `json:"mime_type" yaml:"mime_type"`

	SourceURL    string   `json:"source_url,omitempty" yaml:"source_url,omitempty"` // Ephemeral download URL
	ProductURL   string   `json:"product_url,omitempty" yaml:"product_url,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	CameraMake   string   `json:"camera_make,omitempty" yaml:"camera_make,omitempty"`
	CameraModel  string   `json:"camera_model,omitempty" yaml:"camera_model,omitempty"`
	FocalLength  string   `json:"focal_length,omitempty" yaml:"focal_length,omitempty"`
	Aperture     string   `json:"aperture,omitempty" yaml:"aperture,omitempty"`
	ISO          int      `json:"iso,omitempty" yaml:"iso,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	LocationName string   `json:"location_name,omitempty" yaml:"location_name,omitempty"`
	IsFavorite   bool     `json:"is_favorite,omitempty" yaml:"is_favorite,omitempty"`
}

// FieldValue renders one comparable field as a string.
// The boolean is false for names outside [ComparableFields].
func (i Item) FieldValue(field string) (string, bool) {
	switch field {
	case FieldFilename:
		return i.Filename, true
	case FieldCreatedTime:
		return i.CreatedTime, true
	case FieldWidth:
		return strconv.Itoa(i.Width), true
	case FieldHeight:
		return strconv.Itoa(i.Height), true
	case FieldMimeType:
		return i.MimeType, true
	default:
		return "", false
	}
}

// IsVideo reports whether the MIME type is a video type.
func (i Item) IsVideo() bool {
	return strings.HasPrefix(i.MimeType, "video/")
}
