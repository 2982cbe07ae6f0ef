package utils

import (
	"context"
	"strings"
	"time"

	"github.com/mojocn/base64Captcha"
)

const captchaKeyPrefix = "captcha:"

// Captcha issues digit captchas whose answers live in the shared Cache, so any
// instance can verify them.
type Captcha struct {
	store  *cacheCaptchaStore
	driver base64Captcha.Driver
}

// NewCaptcha creates a Captcha backed by cache; answers expire after ttl.
func NewCaptcha(cache Cache, ttl time.Duration) *Captcha {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Captcha{
		store: &cacheCaptchaStore{cache: cache, ttl: ttl},
		// width 120, height 40, length 5
		driver: base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80),
	}
}

// Generate creates a captcha and returns (id, dataURI) for frontend to display.
func (c *Captcha) Generate() (string, string, error) {
	id, b64, _, err := base64Captcha.NewCaptcha(c.driver, c.store).Generate()
	return id, b64, err
}

// Verify checks the answer and consumes the captcha either way.
func (c *Captcha) Verify(id, answer string) bool {
	if id == "" || answer == "" {
		return false
	}
	return c.store.Verify(id, answer, true)
}

// cacheCaptchaStore implements base64Captcha.Store on top of Cache.
type cacheCaptchaStore struct {
	cache Cache
	ttl   time.Duration
}

func (s *cacheCaptchaStore) Set(id string, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.cache.Set(ctx, captchaKeyPrefix+id, value, s.ttl)
}

func (s *cacheCaptchaStore) Get(id string, clear bool) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var (
		v   string
		err error
	)
	if clear {
		v, _, err = s.cache.GetDel(ctx, captchaKeyPrefix+id)
	} else {
		v, _, err = s.cache.Get(ctx, captchaKeyPrefix+id)
	}
	if err != nil {
		return ""
	}
	return v
}

func (s *cacheCaptchaStore) Verify(id, answer string, clear bool) bool {
	v := s.Get(id, clear)
	return v != "" && strings.EqualFold(strings.TrimSpace(answer), v)
}
