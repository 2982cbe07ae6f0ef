package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cppla/bbsforum/models"
	"github.com/cppla/bbsforum/repository"
	"github.com/cppla/bbsforum/utils"
)

const (
	defaultEmailAuthTTL = 30 * time.Minute
	tempPasswordLength  = 16
	maxSignatureRunes   = 255
	maxNicknameRunes    = 32
)

// MemberConfig tunes the member workflows.
type MemberConfig struct {
	EmailAuthTTL time.Duration
	// VerifyURL is the absolute verify-email endpoint put into mails.
	VerifyURL      string
	AdminUsernames []string
}

// JoinRequest carries the sign-up form.
type JoinRequest struct {
	Username        string
	Password        string
	PasswordConfirm string
	Nickname        string
	Signature       string
}

// ProfileUpdate changes the fields that are not nil.
type ProfileUpdate struct {
	Nickname  *string
	Signature *string
}

// OAuthProfile is the identity returned by an OAuth provider.
type OAuthProfile struct {
	ID    string
	Email string
	Name  string
}

// MemberService manages accounts, email verification and password workflows.
type MemberService struct {
	members repository.MemberRepository
	tx      repository.Transactor
	mailer  utils.Mailer
	tokens  *utils.TokenStore
	cfg     MemberConfig
	now     func() time.Time
}

// NewMemberService creates a MemberService.
func NewMemberService(members repository.MemberRepository, tx repository.Transactor, mailer utils.Mailer, tokens *utils.TokenStore, cfg MemberConfig) *MemberService {
	if cfg.EmailAuthTTL <= 0 {
		cfg.EmailAuthTTL = defaultEmailAuthTTL
	}
	return &MemberService{members: members, tx: tx, mailer: mailer, tokens: tokens, cfg: cfg, now: time.Now}
}

// Join registers a new member and mails the verification link once committed.
func (s *MemberService) Join(ctx context.Context, req JoinRequest) (*models.Member, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	nickname := utils.Truncate(utils.StripTags(req.Nickname), maxNicknameRunes)
	switch {
	case username == "":
		return nil, required("username")
	case nickname == "":
		return nil, required("nickname")
	case req.Password == "":
		return nil, required("password")
	}
	if req.Password != req.PasswordConfirm {
		return nil, ErrPasswordMismatch
	}

	var member *models.Member
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if taken, err := s.members.ExistsByUsername(ctx, username); err != nil {
			return err
		} else if taken {
			return ErrDuplicateUsername
		}
		if taken, err := s.members.ExistsByNickname(ctx, nickname); err != nil {
			return err
		} else if taken {
			return ErrDuplicateNickname
		}
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			return err
		}
		member = &models.Member{
			Username:  username,
			Password:  hash,
			Nickname:  nickname,
			Signature: utils.Truncate(utils.Sanitize(req.Signature), maxSignatureRunes),
			Role:      s.roleFor(username),
		}
		s.renewEmailAuth(member)
		return s.members.Create(ctx, member)
	})
	if err != nil {
		return nil, err
	}
	s.sendVerification(ctx, member)
	return member, nil
}

// VerifyEmail completes email verification. An already verified member is left
// untouched. A wrong or expired token gets replaced, re-mailed and reported as
// ErrEmailAuthFailed.
func (s *MemberService) VerifyEmail(ctx context.Context, username, token string) error {
	var resend *models.Member
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		m, err := s.members.FindByUsername(ctx, username, repository.Bool(false))
		if err != nil {
			return notFound(err, "member", username)
		}
		auth := &m.AuthInfo
		if auth.Authenticated {
			return nil
		}
		if token != "" &&
			subtle.ConstantTimeCompare([]byte(token), []byte(auth.EmailAuthToken)) == 1 &&
			s.now().Before(auth.EmailAuthExpiry) {
			auth.Authenticated = true
			return s.members.Save(ctx, m)
		}
		s.renewEmailAuth(m)
		resend = m
		return s.members.Save(ctx, m)
	})
	if err != nil {
		return err
	}
	if resend != nil {
		s.sendVerification(ctx, resend)
		return ErrEmailAuthFailed
	}
	return nil
}

// ResendVerification issues a fresh verification token. Verified members are a no-op.
func (s *MemberService) ResendVerification(ctx context.Context, username string) error {
	var resend *models.Member
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		m, err := s.members.FindByUsername(ctx, username, repository.Bool(false))
		if err != nil {
			return notFound(err, "member", username)
		}
		if m.AuthInfo.Authenticated {
			return nil
		}
		s.renewEmailAuth(m)
		resend = m
		return s.members.Save(ctx, m)
	})
	if err != nil {
		return err
	}
	if resend != nil {
		s.sendVerification(ctx, resend)
	}
	return nil
}

// ResetPassword mails a temporary password. Unverified members get a new
// verification mail instead and ErrAuthNotCompleted.
func (s *MemberService) ResetPassword(ctx context.Context, username string) error {
	var (
		member *models.Member
		temp   string
		verify bool
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		m, err := s.members.FindByUsername(ctx, username, repository.Bool(false))
		if err != nil {
			return notFound(err, "member", username)
		}
		member = m
		if !m.AuthInfo.Authenticated {
			verify = true
			s.renewEmailAuth(m)
			return s.members.Save(ctx, m)
		}
		temp, err = utils.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return err
		}
		hash, err := utils.HashPassword(temp)
		if err != nil {
			return err
		}
		m.Password = hash
		return s.members.Save(ctx, m)
	})
	if err != nil {
		return err
	}
	if verify {
		s.sendVerification(ctx, member)
		return ErrAuthNotCompleted
	}
	s.revokeSessions(ctx, member.Username)
	body := fmt.Sprintf("Hello %s,\n\nYour temporary password is: %s\n\nPlease sign in and change it right away.\n", member.Nickname, temp)
	return s.mailer.Send(ctx, member.Username, "Your temporary password", body)
}

// ChangePassword replaces the password after checking the current one.
func (s *MemberService) ChangePassword(ctx context.Context, memberID uint, current, next, confirm string) error {
	if next == "" {
		return required("new password")
	}
	if next != confirm {
		return ErrPasswordMismatch
	}
	var username string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		m, err := s.members.FindByID(ctx, memberID, repository.Bool(false))
		if err != nil {
			return notFound(err, "member", memberID)
		}
		if !utils.CheckPassword(m.Password, current) {
			return ErrWrongPassword
		}
		hash, err := utils.HashPassword(next)
		if err != nil {
			return err
		}
		m.Password = hash
		username = m.Username
		return s.members.Save(ctx, m)
	})
	if err != nil {
		return err
	}
	s.revokeSessions(ctx, username)
	return nil
}

// UpdateProfile changes nickname and/or signature.
func (s *MemberService) UpdateProfile(ctx context.Context, memberID uint, in ProfileUpdate) (*models.Member, error) {
	var member *models.Member
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		m, err := s.members.FindByID(ctx, memberID, repository.Bool(false))
		if err != nil {
			return notFound(err, "member", memberID)
		}
		if in.Nickname != nil {
			nickname := utils.Truncate(utils.StripTags(*in.Nickname), maxNicknameRunes)
			if nickname == "" {
				return required("nickname")
			}
			if nickname != m.Nickname {
				taken, err := s.members.ExistsByNickname(ctx, nickname)
				if err != nil {
					return err
				}
				if taken {
					return ErrDuplicateNickname
				}
				m.Nickname = nickname
			}
		}
		if in.Signature != nil {
			m.Signature = utils.Truncate(utils.Sanitize(*in.Signature), maxSignatureRunes)
		}
		member = m
		return s.members.Save(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// Get returns a live member by id.
func (s *MemberService) Get(ctx context.Context, id uint) (*models.Member, error) {
	m, err := s.members.FindByID(ctx, id, repository.Bool(false))
	if err != nil {
		return nil, notFound(err, "member", id)
	}
	return m, nil
}

// GetByUsername returns a live member by username (case-insensitive).
func (s *MemberService) GetByUsername(ctx context.Context, username string) (*models.Member, error) {
	m, err := s.members.FindByUsername(ctx, username, repository.Bool(false))
	if err != nil {
		return nil, notFound(err, "member", username)
	}
	return m, nil
}

// List pages through live members.
func (s *MemberService) List(ctx context.Context, page repository.PageRequest) (repository.Page[models.Member], error) {
	return s.members.FindAll(ctx, page, repository.Bool(false))
}

// Withdraw soft-deletes the account after a password check and revokes its refresh token.
func (s *MemberService) Withdraw(ctx context.Context, memberID uint, password string) error {
	var username string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		m, err := s.members.FindByID(ctx, memberID, repository.Bool(false))
		if err != nil {
			return notFound(err, "member", memberID)
		}
		if !utils.CheckPassword(m.Password, password) {
			return ErrWrongPassword
		}
		username = m.Username
		if err := s.members.SoftDelete(ctx, m.ID); err != nil {
			return notFound(err, "member", memberID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.revokeSessions(ctx, username)
	return nil
}

// OAuthLogin resolves a provider identity to a member: an existing link first,
// then an account with the same email, else a new verified account.
func (s *MemberService) OAuthLogin(ctx context.Context, provider string, p OAuthProfile) (*models.Member, error) {
	if provider == "" || p.ID == "" {
		return nil, required("oauth identity")
	}
	var member *models.Member
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		m, err := s.members.FindByOAuth(ctx, provider, p.ID)
		switch {
		case err == nil:
			if m.Deleted {
				return fmt.Errorf("member withdrawn: %w", ErrEntityNotFound)
			}
			member = m
			return nil
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		email := strings.ToLower(strings.TrimSpace(p.Email))
		if email != "" {
			m, err := s.members.FindByUsername(ctx, email, repository.Bool(false))
			if err == nil {
				m.AuthInfo.OAuthProvider = provider
				m.AuthInfo.OAuthProviderID = p.ID
				m.AuthInfo.Authenticated = true
				member = m
				return s.members.Save(ctx, m)
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		} else {
			email = fmt.Sprintf("%s_%s@users.noreply.%s", provider, p.ID, provider)
		}

		if taken, err := s.members.ExistsByUsername(ctx, email); err != nil {
			return err
		} else if taken {
			// a withdrawn account still owns the address
			return ErrDuplicateUsername
		}
		nickname, err := s.freeNickname(ctx, p.Name, provider)
		if err != nil {
			return err
		}
		secret, err := utils.GenerateTempPassword(32)
		if err != nil {
			return err
		}
		hash, err := utils.HashPassword(secret)
		if err != nil {
			return err
		}
		member = &models.Member{
			Username: email,
			Password: hash,
			Nickname: nickname,
			Role:     s.roleFor(email),
			AuthInfo: models.AuthInfo{
				Authenticated:   true,
				OAuthProvider:   provider,
				OAuthProviderID: p.ID,
			},
		}
		return s.members.Create(ctx, member)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// freeNickname derives an unused nickname from the provider display name.
func (s *MemberService) freeNickname(ctx context.Context, name, provider string) (string, error) {
	base := utils.Truncate(utils.StripTags(name), maxNicknameRunes-9)
	if base == "" {
		base = provider + "_user"
	}
	candidate := base
	for i := 0; i < 5; i++ {
		taken, err := s.members.ExistsByNickname(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "_" + uuid.NewString()[:8]
	}
	return "", ErrDuplicateNickname
}

func (s *MemberService) roleFor(username string) models.Role {
	for _, admin := range s.cfg.AdminUsernames {
		if strings.EqualFold(admin, username) {
			return models.RoleAdmin
		}
	}
	return models.RoleUser
}

func (s *MemberService) renewEmailAuth(m *models.Member) {
	m.AuthInfo.EmailAuthToken = uuid.NewString()
	m.AuthInfo.EmailAuthExpiry = s.now().Add(s.cfg.EmailAuthTTL)
}

// sendVerification mails the link. Failures are logged: the member can ask for a resend.
func (s *MemberService) sendVerification(ctx context.Context, m *models.Member) {
	link := fmt.Sprintf("%s?username=%s&token=%s",
		s.cfg.VerifyURL, url.QueryEscape(m.Username), url.QueryEscape(m.AuthInfo.EmailAuthToken))
	body := fmt.Sprintf("Hello %s,\n\nConfirm your email address within %s by opening:\n%s\n",
		m.Nickname, s.cfg.EmailAuthTTL, link)
	if err := s.mailer.Send(ctx, m.Username, "Verify your email address", body); err != nil {
		utils.Logger.Warn("send verification mail failed", zap.String("to", m.Username), zap.Error(err))
	}
}

func (s *MemberService) revokeSessions(ctx context.Context, username string) {
	if s.tokens == nil {
		return
	}
	if err := s.tokens.DeleteRefresh(ctx, username); err != nil {
		utils.Logger.Warn("revoke refresh token failed", zap.String("username", username), zap.Error(err))
	}
}
