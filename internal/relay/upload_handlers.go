package relay

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"worklink/internal/models"
	"worklink/internal/observability"
	"worklink/internal/upload"
)

// uploadResponse is the success body of POST /api/upload.
type uploadResponse struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// HandleUpload accepts one multipart file and streams it into object
// storage. The client may suggest an object path; anything unsafe falls
// back to a generated one. The caller treats a failure here as terminal,
// so there is exactly one attempt per request.
func (s *Server) HandleUpload(c *fiber.Ctx) error {
	defer observability.TrackRelayUpload()()

	span, ctx := observability.NewSpan(c.UserContext(), "relay.upload")
	defer span.End()

	header, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("A 'file' form field is required"))
	}
	if header.Size > upload.MaxFileSize {
		observability.UploadFailuresTotal.WithLabelValues("relay_validate").Inc()
		return models.RespondWithError(c, fiber.StatusRequestEntityTooLarge,
			models.NewValidationError(fmt.Sprintf(
				"%s exceeds the %dMB limit", header.Filename, upload.MaxFileSize>>20)))
	}

	objectPath := sanitizeObjectPath(c.FormValue("path"), header.Filename)
	span.AddAttributes(
		attribute.String("upload.path", objectPath),
		attribute.Int64("upload.size_bytes", header.Size),
	)

	file, err := header.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read the uploaded file"))
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.storage.Upload(ctx, objectPath, file, contentType); err != nil {
		span.SetError(err)
		observability.UploadFailuresTotal.WithLabelValues("relay_store").Inc()
		return models.RespondWithError(c, fiber.StatusBadGateway, err)
	}

	observability.UploadBytesTotal.WithLabelValues("relayed").Add(float64(header.Size))
	return c.Status(fiber.StatusOK).JSON(uploadResponse{
		Path: objectPath,
		URL:  s.storage.PublicURL(objectPath),
	})
}

// sanitizeObjectPath accepts the client's suggested path only when it is a
// clean relative path. Everything else gets a generated location keyed by
// the original extension.
func sanitizeObjectPath(suggested, filename string) string {
	cleaned := filepath.ToSlash(filepath.Clean(suggested))
	if suggested != "" &&
		!strings.HasPrefix(cleaned, "/") &&
		!strings.HasPrefix(cleaned, "..") &&
		!strings.Contains(cleaned, "../") &&
		cleaned != "." {
		return cleaned
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return "relayed/" + uuid.NewString() + ext
}
