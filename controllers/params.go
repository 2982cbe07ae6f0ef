package controllers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/bbsforum/middleware"
	"github.com/cppla/bbsforum/repository"
)

// idParam parses a positive numeric path parameter.
func idParam(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || n == 0 {
		badRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(n), true
}

// pageRequest reads page, size and repeated sort=property,direction query parameters.
func pageRequest(ctx *gin.Context) repository.PageRequest {
	page, size := parsePagination(ctx.Query("page"), ctx.Query("size"))
	req := repository.PageRequest{Page: page, Size: size}
	for _, raw := range ctx.QueryArray("sort") {
		prop, dir, _ := strings.Cut(raw, ",")
		if prop = strings.TrimSpace(prop); prop == "" {
			continue
		}
		req.Sort = append(req.Sort, repository.Order{Property: prop, Direction: repository.ParseDirection(dir)})
	}
	return req
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page, size := 1, repository.DefaultPageSize
	if n, err := strconv.Atoi(strings.TrimSpace(pageStr)); err == nil && n > 0 {
		page = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(sizeStr)); err == nil && n > 0 && n <= repository.MaxPageSize {
		size = n
	}
	return page, size
}

func searchQuery(ctx *gin.Context) repository.Search {
	return repository.Search{
		Condition: repository.SearchCondition(strings.TrimSpace(ctx.Query("searchCondition"))),
		Keyword:   strings.TrimSpace(ctx.Query("keyword")),
	}
}

// getUserID reads the authenticated member id set by the auth middleware.
func getUserID(ctx *gin.Context) (uint, bool) {
	v, ok := ctx.Get(middleware.ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// mustUserID answers 401 when the request carries no identity.
func mustUserID(ctx *gin.Context) (uint, bool) {
	id, ok := getUserID(ctx)
	if !ok {
		unauthorized(ctx)
	}
	return id, ok
}

func tokenExpiry(ctx *gin.Context) time.Time {
	if v, ok := ctx.Get(middleware.ContextTokenExpiryKey); ok {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

type idsRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}
