package models

import "time"

// SourceType tags the entity that owns an attachment.
type SourceType string

const (
	SourcePost    SourceType = "post"
	SourceMessage SourceType = "message"
)

// AttachmentSource is the tagged owner reference resolved to a concrete
// parent per variant, rather than an untyped (type, id) pair of fields.
type AttachmentSource struct {
	Type SourceType `json:"source_type"`
	ID   string     `json:"source_id"`
}

// PostSource builds a source reference owned by a post.
func PostSource(postID string) AttachmentSource {
	return AttachmentSource{Type: SourcePost, ID: postID}
}

// MessageSource builds a source reference owned by a message.
func MessageSource(messageID string) AttachmentSource {
	return AttachmentSource{Type: SourceMessage, ID: messageID}
}

// FileCategory buckets attachments for the database browser.
type FileCategory string

const (
	CategoryImage        FileCategory = "image"
	CategoryPDF          FileCategory = "pdf"
	CategorySpreadsheet  FileCategory = "spreadsheet"
	CategoryDocument     FileCategory = "document"
	CategoryPresentation FileCategory = "presentation"
	CategoryDesign       FileCategory = "design"
	CategoryOther        FileCategory = "other"
)

// Attachment is a durable file row created by the upload pipeline.
// FileName is user-editable post-upload; the row is renamable and
// deletable independently of its owning post or message.
type Attachment struct {
	ID         string           `json:"id"`
	FileName   string           `json:"file_name"`
	FileURL    string           `json:"file_url"`
	FileType   string           `json:"file_type"`
	Category   FileCategory     `json:"category"`
	FileSize   int64            `json:"file_size"`
	Source     AttachmentSource `json:"source"`
	UploadedBy string           `json:"uploaded_by"`
	CreatedAt  time.Time        `json:"created_at"`
}

func (a Attachment) EntityID() string { return a.ID }
