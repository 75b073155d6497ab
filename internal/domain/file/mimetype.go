package file

import (
	"fmt"
	"regexp"
	"strings"
)

// Category groups MIME types for display and policy decisions.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategoryDocument Category = "document"
	CategoryArchive  Category = "archive"
	CategoryText     Category = "text"
	CategoryOther    Category = "other"
)

// RFC 6838 restricted-name for both type and subtype.
var mimePartPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9!#$&^_.+-]{0,126}$`)

var documentSubtypes = map[string]bool{
	"pdf":      true,
	"msword":   true,
	"rtf":      true,
	"vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"vnd.ms-excel":      true,
	"vnd.ms-powerpoint": true,
}

var archiveSubtypes = map[string]bool{
	"zip":              true,
	"gzip":             true,
	"x-tar":            true,
	"x-7z-compressed":  true,
	"x-rar-compressed": true,
	"x-bzip2":          true,
}

// Types that commonly carry executable payloads and should never be
// served inline.
var dangerousTypes = map[string]bool{
	"application/x-msdownload":         true,
	"application/x-executable":        true,
	"application/x-dosexec":           true,
	"application/x-sh":                true,
	"application/x-bat":               true,
	"application/x-msdos-program":     true,
	"application/vnd.microsoft.portable-executable": true,
	"text/javascript":                 true,
	"application/javascript":          true,
	"application/x-httpd-php":         true,
}

// MimeType is a validated "type/subtype[;params]" media type.
type MimeType struct {
	mainType string
	subType  string
	params   string
}

func NewMimeType(value string) (MimeType, error) {
	base, params, _ := strings.Cut(value, ";")
	base = strings.TrimSpace(strings.ToLower(base))

	mainType, subType, found := strings.Cut(base, "/")
	if !found {
		return MimeType{}, fmt.Errorf("mime type %q must be in type/subtype format", value)
	}
	if !mimePartPattern.MatchString(mainType) {
		return MimeType{}, fmt.Errorf("invalid mime type %q", value)
	}
	if !mimePartPattern.MatchString(subType) {
		return MimeType{}, fmt.Errorf("invalid mime subtype %q", value)
	}

	return MimeType{
		mainType: mainType,
		subType:  subType,
		params:   strings.TrimSpace(params),
	}, nil
}

func (m MimeType) Type() string { return m.mainType }

func (m MimeType) Subtype() string { return m.subType }

func (m MimeType) IsZero() bool { return m.mainType == "" }

func (m MimeType) String() string {
	if m.IsZero() {
		return ""
	}
	s := m.mainType + "/" + m.subType
	if m.params != "" {
		s += ";" + m.params
	}
	return s
}

// BaseType returns the media type without parameters.
func (m MimeType) BaseType() string {
	return m.mainType + "/" + m.subType
}

func (m MimeType) Category() Category {
	switch m.mainType {
	case "image":
		return CategoryImage
	case "video":
		return CategoryVideo
	case "audio":
		return CategoryAudio
	case "text":
		return CategoryText
	case "application":
		if documentSubtypes[m.subType] {
			return CategoryDocument
		}
		if archiveSubtypes[m.subType] {
			return CategoryArchive
		}
	}
	return CategoryOther
}

// IsDangerous reports whether the type is on the executable-content
// denylist.
func (m MimeType) IsDangerous() bool {
	return dangerousTypes[m.BaseType()]
}
