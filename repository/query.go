package repository

import (
	"fmt"
	"strings"
)

// SearchCondition selects which fields a keyword is matched against.
type SearchCondition string

const (
	SearchAll            SearchCondition = ""
	SearchTitle          SearchCondition = "title"
	SearchContent        SearchCondition = "content"
	SearchTitleOrContent SearchCondition = "titleOrContent"
	SearchWriter         SearchCondition = "writer"
)

// Search is a (condition, keyword) pair. The keyword is split on whitespace and a row
// matches when any token matches any field selected by the condition.
type Search struct {
	Condition SearchCondition
	Keyword   string
}

// Direction of an ordering.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection maps "asc" (any case) to Asc and anything else to Desc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), "asc") {
		return Asc
	}
	return Desc
}

// Order is a single (property, direction) sort entry.
type Order struct {
	Property  string
	Direction Direction
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps offset() well inside int range.
	MaxPage = 1_000_000
)

// PageRequest asks for a 1-based page of the given size, ordered by Sort.
type PageRequest struct {
	Page int
	Size int
	Sort []Order
}

func (p PageRequest) normalized() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Size < 1 || p.Size > MaxPageSize {
		p.Size = DefaultPageSize
	}
	return p
}

func (p PageRequest) offset() int {
	return (p.Page - 1) * p.Size
}

// Page is the envelope returned by paginated queries.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPage builds a page envelope; req must already be normalized.
func NewPage[T any](items []T, req PageRequest, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Page:       req.Page,
		Size:       req.Size,
		Total:      total,
		TotalPages: int((total + int64(req.Size) - 1) / int64(req.Size)),
	}
}

// MapPage converts the items of a page keeping the pagination metadata.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, 0, len(p.Items))
	for _, it := range p.Items {
		out = append(out, fn(it))
	}
	return Page[U]{Items: out, Page: p.Page, Size: p.Size, Total: p.Total, TotalPages: p.TotalPages}
}

// searchFields maps each condition to the qualified columns it searches.
type searchFields map[SearchCondition][]string

func (s searchFields) resolve(c SearchCondition) []string {
	if cols, ok := s[c]; ok {
		return cols
	}
	return s[SearchAll]
}

// sortColumns is the allow-list of sortable properties.
type sortColumns map[string]string

const writerAlias = "writer"

var (
	postSearchFields = searchFields{
		SearchTitle:          {"posts.title"},
		SearchContent:        {"posts.content"},
		SearchTitleOrContent: {"posts.title", "posts.content"},
		SearchWriter:         {writerAlias + ".nickname"},
		SearchAll:            {"posts.title", "posts.content", writerAlias + ".nickname"},
	}
	postSortColumns = sortColumns{
		"createdDate":      "posts.created_at",
		"lastModifiedDate": "posts.updated_at",
		"viewCount":        "posts.view_count",
	}

	commentSearchFields = searchFields{
		SearchContent: {"comments.content"},
		SearchWriter:  {writerAlias + ".nickname"},
		SearchAll:     {"comments.content", writerAlias + ".nickname"},
	}
	commentSortColumns = sortColumns{
		"createdDate":      "comments.created_at",
		"lastModifiedDate": "comments.updated_at",
	}

	memberSortColumns = sortColumns{
		"createdDate":      "members.created_at",
		"lastModifiedDate": "members.updated_at",
	}
)

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// keywordClause builds "(f LIKE ? ESCAPE '!' OR ...)" over every token and field.
// ok is false when the keyword has no tokens.
func keywordClause(fields []string, keyword string) (expr string, args []any, ok bool) {
	tokens := strings.Fields(keyword)
	if len(tokens) == 0 || len(fields) == 0 {
		return "", nil, false
	}
	parts := make([]string, 0, len(tokens)*len(fields))
	for _, tok := range tokens {
		pattern := "%" + likeEscaper.Replace(tok) + "%"
		for _, f := range fields {
			parts = append(parts, f+" LIKE ? ESCAPE '!'")
			args = append(args, pattern)
		}
	}
	return "(" + strings.Join(parts, " OR ") + ")", args, true
}

func usesWriter(fields []string) bool {
	for _, f := range fields {
		if strings.HasPrefix(f, writerAlias+".") {
			return true
		}
	}
	return false
}

// orderBy resolves sort entries against the allow-list. Unknown properties are
// dropped; with nothing left it falls back to createdDate DESC. The primary key is
// appended as a tiebreaker.
func orderBy(sort []Order, columns sortColumns, pk string) string {
	parts := make([]string, 0, len(sort)+1)
	last := Desc
	for _, o := range sort {
		col, ok := columns[o.Property]
		if !ok {
			continue
		}
		dir := o.Direction
		if dir != Asc {
			dir = Desc
		}
		parts = append(parts, fmt.Sprintf("%s %s", col, dir))
		last = dir
	}
	if len(parts) == 0 {
		parts = append(parts, columns["createdDate"]+" "+string(Desc))
	}
	parts = append(parts, fmt.Sprintf("%s %s", pk, last))
	return strings.Join(parts, ", ")
}
