package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/bbsforum/models"
	"github.com/cppla/bbsforum/repository"
	"github.com/cppla/bbsforum/utils"
)

const (
	defaultViewCountTTL = time.Hour
	maxTitleRunes       = 255
)

// PostInput is the writable part of a post.
type PostInput struct {
	Title   string
	Content string
	Notice  bool
}

// PostDetail is the single-post view.
type PostDetail struct {
	ID              uint                `json:"id"`
	WriterID        uint                `json:"writer_id"`
	WriterNickname  string              `json:"writer_nickname"`
	Title           string              `json:"title"`
	Content         string              `json:"content"`
	ViewCount       int64               `json:"view_count"`
	Notice          bool                `json:"notice"`
	CommentCount    int64               `json:"comment_count"`
	AttachmentCount int64               `json:"attachment_count"`
	Attachments     []models.Attachment `json:"attachments"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// PostSummary is a row of a post listing.
type PostSummary struct {
	ID              uint      `json:"id"`
	WriterID        uint      `json:"writer_id"`
	WriterNickname  string    `json:"writer_nickname"`
	Title           string    `json:"title"`
	ViewCount       int64     `json:"view_count"`
	Notice          bool      `json:"notice"`
	CommentCount    int64     `json:"comment_count"`
	AttachmentCount int64     `json:"attachment_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func summarize(p models.Post) PostSummary {
	return PostSummary{
		ID:              p.ID,
		WriterID:        p.MemberID,
		WriterNickname:  p.Writer.Nickname,
		Title:           p.Title,
		ViewCount:       p.ViewCount,
		Notice:          p.Notice,
		CommentCount:    p.CommentCount,
		AttachmentCount: p.AttachmentCount,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// PostService applies the posting rules: writer-only mutation, admin-only notices,
// cascading soft delete and deduplicated view counting.
type PostService struct {
	posts       repository.PostRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	members     repository.MemberRepository
	tx          repository.Transactor
	cache       utils.Cache
	viewTTL     time.Duration
}

// NewPostService creates a PostService. viewTTL is the window in which repeated
// views from one session and address count once.
func NewPostService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	attachments repository.AttachmentRepository,
	members repository.MemberRepository,
	tx repository.Transactor,
	cache utils.Cache,
	viewTTL time.Duration,
) *PostService {
	if viewTTL <= 0 {
		viewTTL = defaultViewCountTTL
	}
	return &PostService{
		posts:       posts,
		comments:    comments,
		attachments: attachments,
		members:     members,
		tx:          tx,
		cache:       cache,
		viewTTL:     viewTTL,
	}
}

func cleanPost(in PostInput) (PostInput, error) {
	in.Title = utils.Truncate(utils.StripTags(in.Title), maxTitleRunes)
	in.Content = strings.TrimSpace(utils.Sanitize(in.Content))
	if in.Title == "" {
		return in, required("title")
	}
	if in.Content == "" {
		return in, required("content")
	}
	return in, nil
}

// Create publishes a post. Notices need the ADMIN role.
func (s *PostService) Create(ctx context.Context, memberID uint, in PostInput) (*PostDetail, error) {
	in, err := cleanPost(in)
	if err != nil {
		return nil, err
	}
	var id uint
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		writer, err := s.members.FindByID(ctx, memberID, repository.Bool(false))
		if err != nil {
			return notFound(err, "member", memberID)
		}
		if in.Notice && !writer.IsAdmin() {
			return ErrAccessDenied
		}
		p := &models.Post{MemberID: writer.ID, Title: in.Title, Content: in.Content, Notice: in.Notice}
		if err := s.posts.Create(ctx, p); err != nil {
			return err
		}
		id = p.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Get returns a live post with its writer, counts and attachments.
func (s *PostService) Get(ctx context.Context, id uint) (*PostDetail, error) {
	p, err := s.posts.FindByID(ctx, id, repository.Bool(false))
	if err != nil {
		return nil, notFound(err, "post", id)
	}
	files, err := s.attachments.FindByPost(ctx, id, repository.Bool(false))
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []models.Attachment{}
	}
	return &PostDetail{
		ID:              p.ID,
		WriterID:        p.MemberID,
		WriterNickname:  p.Writer.Nickname,
		Title:           p.Title,
		Content:         p.Content,
		ViewCount:       p.ViewCount,
		Notice:          p.Notice,
		CommentCount:    p.CommentCount,
		AttachmentCount: p.AttachmentCount,
		Attachments:     files,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}, nil
}

// List searches live posts.
func (s *PostService) List(ctx context.Context, search repository.Search, page repository.PageRequest) (repository.Page[PostSummary], error) {
	return s.list(ctx, repository.PostQuery{Search: search, Page: page})
}

// ListByWriter searches the live posts of one member.
func (s *PostService) ListByWriter(ctx context.Context, memberID uint, search repository.Search, page repository.PageRequest) (repository.Page[PostSummary], error) {
	if _, err := s.members.FindByID(ctx, memberID, repository.Bool(false)); err != nil {
		return repository.Page[PostSummary]{}, notFound(err, "member", memberID)
	}
	return s.list(ctx, repository.PostQuery{Search: search, Page: page, WriterID: &memberID})
}

// ListNotices pages through live notice posts.
func (s *PostService) ListNotices(ctx context.Context, page repository.PageRequest) (repository.Page[PostSummary], error) {
	return s.list(ctx, repository.PostQuery{Page: page, Notice: repository.Bool(true)})
}

func (s *PostService) list(ctx context.Context, q repository.PostQuery) (repository.Page[PostSummary], error) {
	q.Deleted = repository.Bool(false)
	page, err := s.posts.FindAll(ctx, q)
	if err != nil {
		return repository.Page[PostSummary]{}, err
	}
	return repository.MapPage(page, summarize), nil
}

// Update rewrites a post. Only the writer may update it, and raising the notice
// flag needs the ADMIN role as it stands when the update runs.
func (s *PostService) Update(ctx context.Context, memberID, postID uint, in PostInput) (*PostDetail, error) {
	in, err := cleanPost(in)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.posts.FindByID(ctx, postID, repository.Bool(false))
		if err != nil {
			return notFound(err, "post", postID)
		}
		actor, err := s.members.FindByID(ctx, memberID, repository.Bool(false))
		if err != nil {
			return notFound(err, "member", memberID)
		}
		if p.MemberID != actor.ID {
			return ErrNotOwner
		}
		if in.Notice && !actor.IsAdmin() {
			return ErrAccessDenied
		}
		p.Title, p.Content, p.Notice = in.Title, in.Content, in.Notice
		return s.posts.Save(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, postID)
}

// Delete soft-deletes a post with its comments and attachments. The writer may
// delete any of their posts; an admin may also delete notices.
func (s *PostService) Delete(ctx context.Context, memberID, postID uint) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.posts.FindByID(ctx, postID, repository.Bool(false))
		if err != nil {
			return notFound(err, "post", postID)
		}
		actor, err := s.members.FindByID(ctx, memberID, repository.Bool(false))
		if err != nil {
			return notFound(err, "member", memberID)
		}
		if p.MemberID != actor.ID && !(p.Notice && actor.IsAdmin()) {
			return ErrNotOwner
		}
		return s.cascadeDelete(ctx, p.ID)
	})
}

// DeleteBulk soft-deletes several posts. Every id must belong to the member,
// otherwise nothing is deleted.
func (s *PostService) DeleteBulk(ctx context.Context, memberID uint, ids []uint) error {
	ids = utils.UniqueUint(ids)
	if len(ids) == 0 {
		return required("ids")
	}
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.members.FindByID(ctx, memberID, repository.Bool(false)); err != nil {
			return notFound(err, "member", memberID)
		}
		owned, err := s.posts.FindIDsByWriter(ctx, memberID, repository.Bool(false))
		if err != nil {
			return err
		}
		if !utils.SubsetUint(ids, owned) {
			return ErrNotOwner
		}
		return s.cascadeDelete(ctx, ids...)
	})
}

func (s *PostService) cascadeDelete(ctx context.Context, ids ...uint) error {
	if err := s.posts.SoftDelete(ctx, ids...); err != nil {
		return err
	}
	if err := s.comments.SoftDeleteByPost(ctx, ids...); err != nil {
		return err
	}
	return s.attachments.SoftDeleteByPost(ctx, ids...)
}

func viewKey(postID uint, sessionID, clientIP string) string {
	return fmt.Sprintf("view:post:%d:%s:%s", postID, sessionID, clientIP)
}

// AddViewCountWithCaching increments the view count at most once per
// (post, session, address) within the view window and reports whether it did.
func (s *PostService) AddViewCountWithCaching(ctx context.Context, postID uint, sessionID, clientIP string) (bool, error) {
	key := viewKey(postID, sessionID, clientIP)
	fresh, err := s.cache.SetNX(ctx, key, "1", s.viewTTL)
	if err != nil {
		return false, fmt.Errorf("mark view: %w", err)
	}
	if !fresh {
		postViewsDeduped.Inc()
		return false, nil
	}
	if err := s.posts.IncrementViewCount(ctx, postID); err != nil {
		// let a later view retry instead of blocking the window
		if derr := s.cache.Delete(ctx, key); derr != nil {
			utils.Logger.Warn("unmark view failed", zap.String("key", key), zap.Error(derr))
		}
		if errors.Is(err, repository.ErrNotFound) {
			return false, notFound(err, "post", postID)
		}
		return false, err
	}
	postViewsCounted.Inc()
	return true, nil
}
