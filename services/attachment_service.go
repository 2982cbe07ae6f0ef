package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cppla/bbsforum/models"
	"github.com/cppla/bbsforum/repository"
	"github.com/cppla/bbsforum/utils"
)

// FileStore persists uploaded bytes.
type FileStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (utils.StoredFile, error)
	Delete(ctx context.Context, storedPath string) error
	Path(storedPath string) (string, error)
}

// Upload is one file of a multipart upload.
type Upload struct {
	Filename string
	Reader   io.Reader
}

// AttachmentService manages files attached to posts.
type AttachmentService struct {
	attachments repository.AttachmentRepository
	posts       repository.PostRepository
	members     repository.MemberRepository
	tx          repository.Transactor
	store       FileStore
}

// NewAttachmentService creates an AttachmentService.
func NewAttachmentService(attachments repository.AttachmentRepository, posts repository.PostRepository, members repository.MemberRepository, tx repository.Transactor, store FileStore) *AttachmentService {
	return &AttachmentService{attachments: attachments, posts: posts, members: members, tx: tx, store: store}
}

// Upload stores files for a post written by memberID. Either every file is
// recorded or none: stored files are removed again on failure.
func (s *AttachmentService) Upload(ctx context.Context, memberID, postID uint, files []Upload) ([]models.Attachment, error) {
	if len(files) == 0 {
		return nil, required("files")
	}
	if _, err := s.members.FindByID(ctx, memberID, repository.Bool(false)); err != nil {
		return nil, notFound(err, "member", memberID)
	}
	p, err := s.posts.FindByID(ctx, postID, repository.Bool(false))
	if err != nil {
		return nil, notFound(err, "post", postID)
	}
	if p.MemberID != memberID {
		return nil, ErrNotOwner
	}

	stored := make([]utils.StoredFile, 0, len(files))
	cleanup := func() {
		for _, f := range stored {
			if err := s.store.Delete(ctx, f.StoredPath); err != nil {
				utils.Logger.Warn("remove stored file failed", zap.String("path", f.StoredPath), zap.Error(err))
			}
		}
	}

	for _, f := range files {
		name := filepath.Base(f.Filename)
		if name == "." || name == string(filepath.Separator) {
			cleanup()
			return nil, required("filename")
		}
		sf, err := s.store.Save(ctx, name, f.Reader)
		if err != nil {
			cleanup()
			if errors.Is(err, utils.ErrFileTooLarge) {
				return nil, fmt.Errorf("%s: %w", name, ErrFileTooLarge)
			}
			return nil, fmt.Errorf("store %s: %w", name, err)
		}
		stored = append(stored, sf)
	}

	out := make([]models.Attachment, 0, len(stored))
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		out = out[:0]
		for i, sf := range stored {
			a := models.Attachment{
				PostID:           postID,
				OriginalFilename: filepath.Base(files[i].Filename),
				StoredFilename:   sf.StoredFilename,
				StoredPath:       sf.StoredPath,
				FileSize:         sf.Size,
			}
			if err := s.attachments.Create(ctx, &a); err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	return out, nil
}

// Get returns a live attachment.
func (s *AttachmentService) Get(ctx context.Context, id uint) (*models.Attachment, error) {
	a, err := s.attachments.FindByID(ctx, id, repository.Bool(false))
	if err != nil {
		return nil, notFound(err, "attachment", id)
	}
	return a, nil
}

// Open returns a live attachment and the local path of its bytes.
func (s *AttachmentService) Open(ctx context.Context, id uint) (*models.Attachment, string, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	path, err := s.store.Path(a.StoredPath)
	if err != nil {
		return nil, "", err
	}
	return a, path, nil
}

// ListByPost lists the live attachments of a live post.
func (s *AttachmentService) ListByPost(ctx context.Context, postID uint) ([]models.Attachment, error) {
	if _, err := s.posts.FindByID(ctx, postID, repository.Bool(false)); err != nil {
		return nil, notFound(err, "post", postID)
	}
	items, err := s.attachments.FindByPost(ctx, postID, repository.Bool(false))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Attachment{}
	}
	return items, nil
}

// Delete soft-deletes an attachment of a post written by memberID and removes the file.
func (s *AttachmentService) Delete(ctx context.Context, memberID, id uint) error {
	var removed *models.Attachment
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		a, err := s.attachments.FindByID(ctx, id, repository.Bool(false))
		if err != nil {
			return notFound(err, "attachment", id)
		}
		p, err := s.posts.FindByID(ctx, a.PostID, repository.Bool(false))
		if err != nil {
			return notFound(err, "post", a.PostID)
		}
		if _, err := s.members.FindByID(ctx, memberID, repository.Bool(false)); err != nil {
			return notFound(err, "member", memberID)
		}
		if p.MemberID != memberID {
			return ErrNotOwner
		}
		removed = a
		return s.attachments.SoftDelete(ctx, a.ID)
	})
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, removed.StoredPath); err != nil {
		utils.Logger.Warn("remove attachment file failed", zap.Uint("attachment_id", id), zap.Error(err))
	}
	return nil
}
