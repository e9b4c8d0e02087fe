package api

import (
	"net/http"
	"os"
	"path/filepath"

	dbmodels "whatsapp-flow-editor/internal/models"
	"whatsapp-flow-editor/internal/store"
	"whatsapp-flow-editor/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UploadHandler struct {
	Store *store.FlowStore
	Dir   string
}

func NewUploadHandler(s *store.FlowStore, dir string) *UploadHandler {
	return &UploadHandler{Store: s, Dir: dir}
}

// Upload stores a file attached to a node config and returns its token
func (h *UploadHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "File is required"})
		return
	}

	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		writeError(c, err)
		return
	}
	token := uuid.NewString()
	dest := filepath.Join(h.Dir, token+filepath.Ext(header.Filename))
	if err := c.SaveUploadedFile(header, dest); err != nil {
		writeError(c, err)
		return
	}

	up := dbmodels.Upload{
		Token:          token,
		OrganizationID: c.PostForm("organization_id"),
		Filename:       filepath.Base(header.Filename),
		MimeType:       header.Header.Get("Content-Type"),
		FileSize:       header.Size,
		Path:           dest,
	}
	if err := h.Store.CreateUpload(c.Request.Context(), &up); err != nil {
		os.Remove(dest)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.UploadResponse{
		Token:      up.Token,
		Filename:   up.Filename,
		MimeType:   up.MimeType,
		FileSize:   up.FileSize,
		UploadedAt: up.UploadedAt,
	})
}

// Download serves an uploaded file by token.
func (h *UploadHandler) Download(c *gin.Context) {
	up, err := h.Store.GetUpload(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.FileAttachment(up.Path, up.Filename)
}
