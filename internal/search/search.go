package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Query describes a search request. CallerID scopes results to boards the
// caller may read; empty means anonymous (public boards only).
type Query struct {
	Text     string
	CallerID string
	Limit    int
	Offset   int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over boards.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// BoardRecord is the data we index for a board. Visibility fields ride along
// so the engine can filter to what the caller may read.
type BoardRecord struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Data     string   `json:"data"`
	AuthorID string   `json:"authorId"`
	IsPublic bool     `json:"isPublic"`
	Editors  []string `json:"editors"`
}
