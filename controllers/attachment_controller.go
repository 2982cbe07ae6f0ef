package controllers

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/bbsforum/services"
	"github.com/cppla/bbsforum/utils"
)

const maxFilesPerUpload = 10

// AttachmentController handles multipart uploads and downloads of post attachments.
type AttachmentController struct {
	attachments *services.AttachmentService
	maxBytes    int64
}

// NewAttachmentController creates an AttachmentController. maxBytes caps a single file.
func NewAttachmentController(attachments *services.AttachmentService, maxBytes int64) *AttachmentController {
	return &AttachmentController{attachments: attachments, maxBytes: maxBytes}
}

// UploadAttachments stores the multipart "files" of a request on a post owned by the caller.
func (a *AttachmentController) UploadAttachments(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	postID, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	if a.maxBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, a.maxBytes*maxFilesPerUpload+(1<<20))
	}
	form, err := ctx.MultipartForm()
	if err != nil {
		badRequest(ctx, "invalid multipart form")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		badRequest(ctx, "no files uploaded")
		return
	}
	if len(headers) > maxFilesPerUpload {
		badRequest(ctx, "too many files")
		return
	}

	uploads := make([]services.Upload, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, h := range headers {
		if a.maxBytes > 0 && h.Size > a.maxBytes {
			respondError(ctx, services.ErrFileTooLarge)
			return
		}
		f, err := h.Open()
		if err != nil {
			badRequest(ctx, "cannot read "+h.Filename)
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, services.Upload{Filename: h.Filename, Reader: f})
	}

	items, err := a.attachments.Upload(ctx.Request.Context(), userID, postID, uploads)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"items": items})
}

// ListAttachments lists the attachments of a post.
func (a *AttachmentController) ListAttachments(ctx *gin.Context) {
	postID, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	items, err := a.attachments.ListByPost(ctx.Request.Context(), postID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}

// Download streams an attachment under its original filename.
func (a *AttachmentController) Download(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	att, path, err := a.attachments.Open(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.FileAttachment(path, att.OriginalFilename)
}

// DeleteAttachment removes an attachment from a post owned by the caller.
func (a *AttachmentController) DeleteAttachment(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	if err := a.attachments.Delete(ctx.Request.Context(), userID, id); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"id": id})
}
