// Package upload turns local file selections into durable attachment rows:
// validation, format normalization, direct-or-delegated storage upload,
// and finalization. One file's failure never blocks the rest of its batch.
package upload

import (
	"fmt"
	"strings"

	"worklink/internal/models"
)

const (
	// MaxFileSize is the hard ceiling; larger files are rejected outright.
	MaxFileSize = 500 << 20
	// SoftSizeLimit triggers a warn-but-allow confirmation.
	SoftSizeLimit = 100 << 20
	// DirectUploadLimit splits the upload paths: at or below goes direct
	// to object storage, above goes through the delegated relay.
	DirectUploadLimit = 40 << 20
	// DefaultMaxAttachments caps files per entity. A product constant,
	// not a protocol limit.
	DefaultMaxAttachments = 4
)

// File is one local selection entering the pipeline.
type File struct {
	Name        string
	ContentType string
	Content     []byte
	// Size overrides len(Content) when set; selections can be validated
	// and routed before their bytes are in memory.
	Size int64
}

// SizeBytes returns the effective size used for validation and routing.
func (f File) SizeBytes() int64 {
	if f.Size > 0 {
		return f.Size
	}
	return int64(len(f.Content))
}

// RejectedFile names one file dropped during validation and why.
type RejectedFile struct {
	Name   string
	Reason string
}

// BatchValidation is the outcome of validating one selection batch.
type BatchValidation struct {
	Accepted []File
	Rejected []RejectedFile
}

// ConfirmFunc asks the user whether oversize (soft-limit) files should
// proceed. Returning false aborts the whole batch.
type ConfirmFunc func(oversizeNames []string) bool

// ValidateBatch enforces the size ceiling, the soft-limit confirmation and
// the per-entity attachment cap. Files over the hard ceiling are rejected
// individually with their names enumerated; the rest of the batch
// proceeds.
func ValidateBatch(files []File, existingCount, maxAttachments int, confirm ConfirmFunc) (*BatchValidation, error) {
	if maxAttachments <= 0 {
		maxAttachments = DefaultMaxAttachments
	}

	out := &BatchValidation{}
	var oversize []string
	for _, f := range files {
		size := f.SizeBytes()
		switch {
		case size > MaxFileSize:
			out.Rejected = append(out.Rejected, RejectedFile{
				Name:   f.Name,
				Reason: fmt.Sprintf("exceeds the %dMB limit (%.2f MB)", MaxFileSize>>20, float64(size)/(1<<20)),
			})
		case size > SoftSizeLimit:
			oversize = append(oversize, fmt.Sprintf("%s (%.2f MB)", f.Name, float64(size)/(1<<20)))
			out.Accepted = append(out.Accepted, f)
		default:
			out.Accepted = append(out.Accepted, f)
		}
	}

	if len(oversize) > 0 {
		if confirm == nil || !confirm(oversize) {
			return nil, models.NewValidationError(
				"Upload cancelled: " + strings.Join(oversize, ", ") + " exceed 100MB")
		}
	}

	if existingCount+len(out.Accepted) > maxAttachments {
		return nil, models.NewValidationError(
			fmt.Sprintf("Up to %d attachments are allowed per item", maxAttachments))
	}

	return out, nil
}
