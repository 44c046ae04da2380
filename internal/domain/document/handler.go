package document

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/extraction"
	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/documents/upload", h.UploadDocument)
	api.GET("/documents", h.ListDocuments)
	api.GET("/documents/:id", h.GetDocument)
	api.GET("/documents/:id/presign", h.PresignDocument)
	api.POST("/documents/:id/accept", h.AcceptDocument)
	api.POST("/documents/:id/retry", h.RetryDocument)
	api.DELETE("/documents/:id", h.DeleteDocument)
}

func (h *Handler) UploadDocument(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file field")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, MaxUploadBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}

	doc, err := h.svc.Upload(c.Request().Context(), userID, fh.Filename,
		fh.Header.Get("Content-Type"), data)
	if errors.Is(err, ErrTooLarge) {
		return echo.NewHTTPError(http.StatusBadRequest, "file too large (max 5MB)")
	}
	if errors.Is(err, ErrUnsupportedType) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid file type")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, doc)
}

func (h *Handler) ListDocuments(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	docs, total, err := h.svc.List(c.Request().Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	resp := pagination.NewResponse(docs, total, pg.Limit, pg.Offset)
	resp.Links = pg.Links(c.Path(), total)
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetDocument(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doc, rec, err := h.svc.Get(c.Request().Context(), userID, id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"document":   doc,
		"extraction": rec,
	})
}

func (h *Handler) PresignDocument(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	download := c.QueryParam("download") == "true"

	url, expires, err := h.svc.Presign(c.Request().Context(), userID, id, download)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	if errors.Is(err, ErrObjectMissing) {
		return echo.NewHTTPError(http.StatusNotFound, "object not found in storage")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"presigned_url": url,
		"expires_in":    expires,
	})
}

func (h *Handler) AcceptDocument(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	correction, err := readCorrection(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed correction body")
	}

	doc, err := h.svc.Accept(c.Request().Context(), userID, id, correction)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	if errors.Is(err, extraction.ErrInvalidPayload) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) RetryDocument(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	doc, err := h.svc.Retry(c.Request().Context(), userID, id)
	var tooSoon *TooSoonError
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	case errors.Is(err, ErrAlreadyAccepted):
		return echo.NewHTTPError(http.StatusBadRequest, "document already accepted")
	case errors.As(err, &tooSoon):
		return echo.NewHTTPError(http.StatusTooManyRequests, map[string]interface{}{
			"error":             "retry too soon",
			"remaining_seconds": tooSoon.Remaining,
		})
	case errors.Is(err, ErrObjectMissing):
		return echo.NewHTTPError(http.StatusNotFound, "object not found in storage")
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) DeleteDocument(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err = h.svc.Delete(c.Request().Context(), userID, id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// readCorrection decodes an optional JSON correction body. An empty body
// means no correction.
func readCorrection(c echo.Context) (map[string]any, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	var correction map[string]any
	if err := json.Unmarshal(body, &correction); err != nil {
		return nil, err
	}
	return correction, nil
}
