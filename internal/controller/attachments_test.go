package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worklink/internal/models"
	"worklink/internal/testutil"
)

func TestAttachmentsLoadBySearchAndCategory(t *testing.T) {
	records, backend := newRecords(t)
	contract := testutil.RandomAttachment("post-1")
	contract.FileName = "Contract_2026.pdf"
	photo := testutil.RandomAttachment("post-2")
	photo.FileName = "site_photo.jpg"
	photo.Category = models.CategoryImage
	backend.Seed("attachments", contract)
	backend.Seed("attachments", photo)

	browser := NewAttachments(records)
	defer browser.Close()

	require.NoError(t, browser.Load(context.Background(), "contract", ""))
	values := browser.List.Values()
	require.Len(t, values, 1)
	assert.Equal(t, contract.ID, values[0].ID)

	require.NoError(t, browser.Load(context.Background(), "", models.CategoryImage))
	values = browser.List.Values()
	require.Len(t, values, 1)
	assert.Equal(t, photo.ID, values[0].ID)

	require.NoError(t, browser.Load(context.Background(), "", ""))
	assert.Len(t, browser.List.Values(), 2)
}

func TestAttachmentsRename(t *testing.T) {
	records, backend := newRecords(t)
	att := testutil.RandomAttachment("post-1")
	backend.Seed("attachments", att)

	browser := NewAttachments(records)
	defer browser.Close()
	require.NoError(t, browser.Load(context.Background(), "", ""))

	_, err := browser.Rename(context.Background(), att.ID, "")
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	renamed, err := browser.Rename(context.Background(), att.ID, "final_report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "final_report.pdf", renamed.FileName)

	rows := backend.Rows("attachments")
	require.Len(t, rows, 1)
	assert.Equal(t, "final_report.pdf", rows[0]["file_name"])
	assert.Equal(t, att.FileURL, rows[0]["file_url"], "the stored object keeps its path")
}

func TestAttachmentsDeleteRowOnly(t *testing.T) {
	records, backend := newRecords(t)
	att := testutil.RandomAttachment("post-1")
	backend.Seed("attachments", att)

	browser := NewAttachments(records)
	defer browser.Close()
	require.NoError(t, browser.Load(context.Background(), "", ""))

	require.NoError(t, browser.Delete(context.Background(), att.ID))
	assert.Empty(t, backend.Rows("attachments"))
	assert.Empty(t, browser.List.Values())
}
