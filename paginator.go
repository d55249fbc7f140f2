package blogdesk

// Paginator holds the posts for one page of a list together with the page numbers around it.
type Paginator struct {
	TotalPages  int
	CurrentPage int
	NextPage    int
	PrevPage    int
	PageSize    int
	HasNext     bool
	HasPrev     bool
	HasPosts    bool
	TotalPosts  int
	Posts       []*Post
	Query       string
	Visible     bool // False when everything fits on one page.
}

// NewPaginator slices one page out of posts. Pages are numbered from 1; a page past the end is
// clamped to the last page and a non-positive page size shows everything on one page.
func NewPaginator(posts []*Post, currentPage, pageSize int) Paginator {
	if posts == nil {
		posts = []*Post{}
	}
	total := len(posts)
	if pageSize <= 0 {
		pageSize = max(total, 1)
	}

	totalPages := max((total+pageSize-1)/pageSize, 1)
	currentPage = min(max(currentPage, 1), totalPages)

	start := (currentPage - 1) * pageSize
	end := min(start+pageSize, total)
	page := posts[start:end]

	nextPage := min(currentPage+1, totalPages)
	prevPage := max(currentPage-1, 1)

	return Paginator{
		TotalPages:  totalPages,
		CurrentPage: currentPage,
		NextPage:    nextPage,
		PrevPage:    prevPage,
		PageSize:    pageSize,
		HasNext:     currentPage < totalPages,
		HasPrev:     currentPage > 1,
		HasPosts:    len(page) > 0,
		TotalPosts:  total,
		Posts:       page,
		Visible:     totalPages > 1,
	}
}
