package request

import "net/http"

// ListParams bundles the pagination, search, filter, and sort knobs
// shared by every list endpoint.
type ListParams struct {
	Limit    int
	Cursor   string
	Search   string
	Status   string
	Category string
	Sort     string
	Order    string // "asc" or "desc"
}

// ParseListParams reads list parameters from the query string. Unknown
// order values fall back to descending; defaultSort fills in when the
// client names no sort field.
func ParseListParams(r *http.Request, defaultSort string) ListParams {
	pg := ParsePagination(r)
	q := r.URL.Query()

	order := stringOr(q.Get("order"), "desc")
	if order != "asc" && order != "desc" {
		order = "desc"
	}
	return ListParams{
		Limit:    pg.Limit,
		Cursor:   pg.Cursor,
		Search:   q.Get("search"),
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Sort:     stringOr(q.Get("sort"), defaultSort),
		Order:    order,
	}
}

func stringOr(val, fallback string) string {
	if val != "" {
		return val
	}
	return fallback
}
