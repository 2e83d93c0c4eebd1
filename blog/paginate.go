package blog

import (
	"strconv"
	"strings"
)

// PostsPerPage is the listing page size.
const PostsPerPage = 3

// Page holds what the templates need to render one page and its controls.
type Page struct {
	Number     int
	TotalPages int
	Total      int
	PerPage    int
	NextPage   int
	PrevPage   int
	HasNext    bool
	HasPrev    bool
}

// Offset is the index of the first item on the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// Paginator turns an item count and a raw page parameter into a Page.
type Paginator struct {
	PerPage int
}

func NewPaginator(perPage int) Paginator {
	if perPage < 1 {
		perPage = PostsPerPage
	}
	return Paginator{PerPage: perPage}
}

// Page never fails: a missing or non-integer raw value selects the first
// page, and a number below 1 or past the end selects the last page.
func (pg Paginator) Page(total int, raw string) Page {
	perPage := pg.PerPage
	if perPage < 1 {
		perPage = PostsPerPage
	}
	pages := (total + perPage - 1) / perPage
	if pages < 1 {
		pages = 1
	}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	switch {
	case raw == "" || err != nil:
		n = 1
	case n < 1 || n > pages:
		n = pages
	}

	return Page{
		Number:     n,
		TotalPages: pages,
		Total:      total,
		PerPage:    perPage,
		NextPage:   n + 1,
		PrevPage:   n - 1,
		HasNext:    n < pages,
		HasPrev:    n > 1,
	}
}
