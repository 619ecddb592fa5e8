package upload

import (
	"path/filepath"
	"strings"

	"worklink/internal/models"
)

// Classify buckets a file into its browser category. The MIME type takes
// precedence; the filename extension is the fallback for generic or
// missing types.
func Classify(mimeType, filename string) models.FileCategory {
	mt := strings.ToLower(strings.TrimSpace(mimeType))

	switch {
	case strings.HasPrefix(mt, "image/"):
		return models.CategoryImage
	case strings.Contains(mt, "pdf"):
		return models.CategoryPDF
	case strings.Contains(mt, "excel"), strings.Contains(mt, "spreadsheet"), strings.Contains(mt, "csv"):
		return models.CategorySpreadsheet
	case strings.Contains(mt, "presentation"), strings.Contains(mt, "powerpoint"):
		return models.CategoryPresentation
	case strings.Contains(mt, "word"), strings.Contains(mt, "msword"), strings.Contains(mt, "document"):
		return models.CategoryDocument
	case strings.Contains(mt, "photoshop"), strings.Contains(mt, "illustrator"), strings.Contains(mt, "postscript"):
		return models.CategoryDesign
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic", ".heif", ".bmp", ".svg":
		return models.CategoryImage
	case ".pdf":
		return models.CategoryPDF
	case ".xls", ".xlsx", ".csv":
		return models.CategorySpreadsheet
	case ".ppt", ".pptx":
		return models.CategoryPresentation
	case ".doc", ".docx", ".txt", ".md":
		return models.CategoryDocument
	case ".psd", ".ai", ".fig", ".sketch":
		return models.CategoryDesign
	default:
		return models.CategoryOther
	}
}
