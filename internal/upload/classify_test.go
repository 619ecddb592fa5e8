package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"worklink/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		mime     string
		filename string
		want     models.FileCategory
	}{
		{"jpeg by mime", "image/jpeg", "photo.jpg", models.CategoryImage},
		{"pdf by mime", "application/pdf", "doc.pdf", models.CategoryPDF},
		{"xlsx by mime", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "sheet.xlsx", models.CategorySpreadsheet},
		{"csv by mime", "text/csv", "data.csv", models.CategorySpreadsheet},
		{"pptx by mime", "application/vnd.openxmlformats-officedocument.presentationml.presentation", "deck.pptx", models.CategoryPresentation},
		{"docx by mime", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "memo.docx", models.CategoryDocument},
		{"photoshop by mime", "image/vnd.adobe.photoshop", "art.psd", models.CategoryImage},
		{"psd by extension", "application/octet-stream", "art.psd", models.CategoryDesign},
		{"heic by extension", "", "IMG_0001.HEIC", models.CategoryImage},
		{"markdown by extension", "application/octet-stream", "notes.md", models.CategoryDocument},
		{"figma by extension", "", "mock.fig", models.CategoryDesign},
		{"unknown", "application/octet-stream", "archive.bin", models.CategoryOther},
		{"mime wins over extension", "application/pdf", "weird.xlsx", models.CategoryPDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.mime, tt.filename))
		})
	}
}
