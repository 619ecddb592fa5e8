package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"worklink/internal/models"
	"worklink/internal/observability"
	"worklink/internal/platform"
)

const (
	// Direct uploads retry with linearly increasing backoff. The
	// delegated path never retries client-side; its failure is terminal.
	maxDirectAttempts   = 3
	directRetryBackoff  = 2 * time.Second
	delegatedUploadPath = "/api/upload"
)

// Path names the upload route chosen for a file.
type Path string

const (
	PathDirect    Path = "direct"
	PathDelegated Path = "delegated"
)

// SelectPath routes by size: at or below the threshold the client uploads
// straight to object storage; above it the delegated relay takes over,
// because very large direct uploads are unreliable over typical
// connections.
func SelectPath(size int64) Path {
	if size <= DirectUploadLimit {
		return PathDirect
	}
	return PathDelegated
}

// FileError reports one failed file by name without failing its batch.
type FileError struct {
	Name string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

// Result is the outcome of one batch.
type Result struct {
	Attachments []models.Attachment
	Failed      []FileError
}

// Pipeline turns local file selections into attachment rows.
type Pipeline struct {
	storage        platform.ObjectStorage
	records        *platform.RecordsClient
	relayURL       string
	token          func() string
	normalizer     *Normalizer
	maxAttachments int
	http           *http.Client
	log            *observability.UploadLogger
	// sleep is replaceable in tests.
	sleep func(time.Duration)
}

// NewPipeline wires the pipeline. token must yield the session bearer:
// the delegated path proves the caller's identity with it.
func NewPipeline(
	storage platform.ObjectStorage,
	records *platform.RecordsClient,
	relayURL string,
	token func() string,
	maxAttachments int,
) *Pipeline {
	if maxAttachments <= 0 {
		maxAttachments = DefaultMaxAttachments
	}
	return &Pipeline{
		storage:        storage,
		records:        records,
		relayURL:       strings.TrimSuffix(relayURL, "/"),
		token:          token,
		normalizer:     &Normalizer{},
		maxAttachments: maxAttachments,
		http:           &http.Client{Timeout: 10 * time.Minute},
		log:            observability.NewUploadLogger(),
		sleep:          time.Sleep,
	}
}

// SetConverter installs the external conversion hook for formats this
// process cannot decode.
func (p *Pipeline) SetConverter(fn ConvertFunc) {
	p.normalizer.Convert = fn
}

// UploadBatch validates, normalizes, uploads and finalizes a batch of
// files for one owning entity. Per-file failures are collected in
// Result.Failed with the file's name; the remaining files complete. A
// batch-level error is returned only for validation aborts (cap exceeded,
// confirmation declined).
func (p *Pipeline) UploadBatch(
	ctx context.Context,
	files []File,
	source models.AttachmentSource,
	uploadedBy string,
	existingCount int,
	confirm ConfirmFunc,
) (*Result, error) {
	validated, err := ValidateBatch(files, existingCount, p.maxAttachments, confirm)
	if err != nil {
		observability.UploadFailuresTotal.WithLabelValues("validate").Inc()
		return nil, err
	}

	result := &Result{}
	for _, rejected := range validated.Rejected {
		observability.UploadFailuresTotal.WithLabelValues("validate").Inc()
		result.Failed = append(result.Failed, FileError{
			Name: rejected.Name,
			Err:  models.NewValidationError(rejected.Reason),
		})
	}

	for _, f := range validated.Accepted {
		attachment, err := p.uploadOne(ctx, f, source, uploadedBy)
		if err != nil {
			result.Failed = append(result.Failed, FileError{Name: f.Name, Err: err})
			continue
		}
		result.Attachments = append(result.Attachments, *attachment)
	}

	p.log.LogBatch(ctx, len(files), len(result.Attachments), len(result.Failed))
	return result, nil
}

func (p *Pipeline) uploadOne(ctx context.Context, f File, source models.AttachmentSource, uploadedBy string) (*models.Attachment, error) {
	normalized, err := p.normalizer.Normalize(ctx, f)
	if err != nil {
		observability.UploadFailuresTotal.WithLabelValues("normalize").Inc()
		p.log.LogFile(ctx, f.Name, "", f.SizeBytes(), err)
		return nil, err
	}

	objectPath := objectPathFor(source, normalized.Name)
	size := normalized.SizeBytes()

	var fileURL string
	switch SelectPath(size) {
	case PathDirect:
		err = p.uploadDirect(ctx, objectPath, normalized)
		fileURL = p.storage.PublicURL(objectPath)
	default:
		fileURL, err = p.uploadDelegated(ctx, objectPath, normalized)
	}
	if err != nil {
		observability.UploadFailuresTotal.WithLabelValues("upload").Inc()
		p.log.LogFile(ctx, normalized.Name, objectPath, size, err)
		return nil, err
	}
	observability.UploadBytesTotal.WithLabelValues(string(SelectPath(size))).Add(float64(size))

	row := models.Attachment{
		FileName:   normalized.Name,
		FileURL:    fileURL,
		FileType:   normalized.ContentType,
		Category:   Classify(normalized.ContentType, normalized.Name),
		FileSize:   size,
		Source:     source,
		UploadedBy: uploadedBy,
	}
	var created models.Attachment
	if err := p.records.Insert(ctx, "attachments", row, &created); err != nil {
		// The uploaded object is orphaned here: there is no compensation
		// for a failed row insert after a successful put.
		observability.UploadFailuresTotal.WithLabelValues("finalize").Inc()
		p.log.LogFile(ctx, normalized.Name, objectPath, size, err)
		return nil, err
	}

	p.log.LogFile(ctx, normalized.Name, objectPath, size, nil)
	return &created, nil
}

// uploadDirect puts the object straight into storage, retrying up to
// maxDirectAttempts with backoff of 2s x attempt number.
func (p *Pipeline) uploadDirect(ctx context.Context, objectPath string, f File) error {
	var err error
	for attempt := 1; attempt <= maxDirectAttempts; attempt++ {
		err = p.storage.Upload(ctx, objectPath, bytes.NewReader(f.Content), f.ContentType)
		if err == nil {
			return nil
		}
		if attempt < maxDirectAttempts {
			p.sleep(directRetryBackoff * time.Duration(attempt))
		}
	}
	return err
}

// uploadDelegated streams the file to the relay as multipart, proving
// identity with the session bearer. No client-side retry: the relay owns
// the upload from here and a failure is terminal.
func (p *Pipeline) uploadDelegated(ctx context.Context, objectPath string, f File) (string, error) {
	tok := p.token()
	if tok == "" {
		return "", models.NewUnauthorizedError("Not signed in")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("path", objectPath); err != nil {
		return "", models.NewInternalError(err)
	}
	part, err := writer.CreateFormFile("file", f.Name)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if _, err := part.Write(f.Content); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := writer.Close(); err != nil {
		return "", models.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.relayURL+delegatedUploadPath, body)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.http.Do(req)
	if err != nil {
		return "", models.NewPermanentError("Delegated upload failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", models.NewPermanentError(
			fmt.Sprintf("Delegated upload failed with status %d", resp.StatusCode),
			fmt.Errorf("%s", strings.TrimSpace(string(raw))),
		)
	}

	var out struct {
		Path string `json:"path"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", models.NewPermanentError("Malformed relay response", err)
	}
	if out.URL != "" {
		return out.URL, nil
	}
	return p.storage.PublicURL(out.Path), nil
}

func objectPathFor(source models.AttachmentSource, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%s%s", source.Type, uuid.NewString(), ext)
}
