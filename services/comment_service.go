package services

import (
	"context"
	"strings"
	"time"

	"github.com/cppla/bbsforum/models"
	"github.com/cppla/bbsforum/repository"
	"github.com/cppla/bbsforum/utils"
)

// CommentView is the public shape of a comment: the writer is reduced to id and nickname.
type CommentView struct {
	ID             uint      `json:"id"`
	PostID         uint      `json:"post_id"`
	WriterID       uint      `json:"writer_id"`
	WriterNickname string    `json:"writer_nickname"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func viewComment(c models.Comment) CommentView {
	return CommentView{
		ID:             c.ID,
		PostID:         c.PostID,
		WriterID:       c.MemberID,
		WriterNickname: c.Writer.Nickname,
		Content:        c.Content,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// CommentService manages replies under posts.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	members  repository.MemberRepository
	tx       repository.Transactor
}

// NewCommentService creates a CommentService.
func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository, members repository.MemberRepository, tx repository.Transactor) *CommentService {
	return &CommentService{comments: comments, posts: posts, members: members, tx: tx}
}

func cleanComment(content string) (string, error) {
	content = strings.TrimSpace(utils.Sanitize(content))
	if content == "" {
		return "", required("content")
	}
	return content, nil
}

// Create adds a comment to a live post.
func (s *CommentService) Create(ctx context.Context, memberID, postID uint, content string) (*CommentView, error) {
	content, err := cleanComment(content)
	if err != nil {
		return nil, err
	}
	var comment *models.Comment
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		writer, err := s.members.FindByID(ctx, memberID, repository.Bool(false))
		if err != nil {
			return notFound(err, "member", memberID)
		}
		if _, err := s.posts.FindByID(ctx, postID, repository.Bool(false)); err != nil {
			return notFound(err, "post", postID)
		}
		comment = &models.Comment{PostID: postID, MemberID: writer.ID, Content: content}
		if err := s.comments.Create(ctx, comment); err != nil {
			return err
		}
		comment.Writer = *writer
		return nil
	})
	if err != nil {
		return nil, err
	}
	v := viewComment(*comment)
	return &v, nil
}

// owned loads a live comment and checks that memberID wrote it.
func (s *CommentService) owned(ctx context.Context, memberID, commentID uint) (*models.Comment, error) {
	c, err := s.comments.FindByID(ctx, commentID, repository.Bool(false))
	if err != nil {
		return nil, notFound(err, "comment", commentID)
	}
	if _, err := s.members.FindByID(ctx, memberID, repository.Bool(false)); err != nil {
		return nil, notFound(err, "member", memberID)
	}
	if c.MemberID != memberID {
		return nil, ErrNotOwner
	}
	return c, nil
}

// Update rewrites a comment owned by memberID.
func (s *CommentService) Update(ctx context.Context, memberID, commentID uint, content string) (*CommentView, error) {
	content, err := cleanComment(content)
	if err != nil {
		return nil, err
	}
	var comment *models.Comment
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.owned(ctx, memberID, commentID)
		if err != nil {
			return err
		}
		c.Content = content
		comment = c
		return s.comments.Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	v := viewComment(*comment)
	return &v, nil
}

// Delete soft-deletes a comment owned by memberID.
func (s *CommentService) Delete(ctx context.Context, memberID, commentID uint) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.owned(ctx, memberID, commentID)
		if err != nil {
			return err
		}
		return s.comments.SoftDelete(ctx, c.ID)
	})
}

// DeleteBulk soft-deletes several comments, all or none.
func (s *CommentService) DeleteBulk(ctx context.Context, memberID uint, ids []uint) error {
	ids = utils.UniqueUint(ids)
	if len(ids) == 0 {
		return required("ids")
	}
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.members.FindByID(ctx, memberID, repository.Bool(false)); err != nil {
			return notFound(err, "member", memberID)
		}
		owned, err := s.comments.FindIDsByWriter(ctx, memberID, repository.Bool(false))
		if err != nil {
			return err
		}
		if !utils.SubsetUint(ids, owned) {
			return ErrNotOwner
		}
		return s.comments.SoftDelete(ctx, ids...)
	})
}

// ListByPost searches the live comments of a live post.
func (s *CommentService) ListByPost(ctx context.Context, postID uint, search repository.Search, page repository.PageRequest) (repository.Page[CommentView], error) {
	if _, err := s.posts.FindByID(ctx, postID, repository.Bool(false)); err != nil {
		return repository.Page[CommentView]{}, notFound(err, "post", postID)
	}
	return s.list(ctx, repository.CommentQuery{
		PostID:  &postID,
		Search:  search,
		Page:    page,
		Deleted: repository.Bool(false),
	})
}

// ListByWriter searches the live comments of a member.
func (s *CommentService) ListByWriter(ctx context.Context, memberID uint, search repository.Search, page repository.PageRequest) (repository.Page[CommentView], error) {
	if _, err := s.members.FindByID(ctx, memberID, repository.Bool(false)); err != nil {
		return repository.Page[CommentView]{}, notFound(err, "member", memberID)
	}
	return s.list(ctx, repository.CommentQuery{
		WriterID: &memberID,
		Search:   search,
		Page:     page,
		Deleted:  repository.Bool(false),
	})
}

func (s *CommentService) list(ctx context.Context, q repository.CommentQuery) (repository.Page[CommentView], error) {
	page, err := s.comments.FindAll(ctx, q)
	if err != nil {
		return repository.Page[CommentView]{}, err
	}
	return repository.MapPage(page, viewComment), nil
}
