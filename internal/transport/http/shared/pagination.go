package shared

import (
	"net/http"
	"strconv"
)

const totalCountHeader = "X-Total-Count"

// PageLimits bounds the page size of a list endpoint.
type PageLimits struct {
	Default int
	Max     int
}

var (
	EmployeePages   = PageLimits{Default: 50, Max: 200}
	EvaluationPages = PageLimits{Default: 50, Max: 200}
	AuditPages      = PageLimits{Default: 100, Max: 500}
)

type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads limit and offset. A 1-based page parameter takes
// precedence over offset.
func ParsePage(r *http.Request, limits PageLimits) Page {
	query := r.URL.Query()
	page := Page{Limit: limits.Default}
	if v, ok := queryInt(query.Get("limit")); ok && v > 0 {
		page.Limit = v
	}
	if limits.Max > 0 && page.Limit > limits.Max {
		page.Limit = limits.Max
	}
	if v, ok := queryInt(query.Get("offset")); ok && v >= 0 {
		page.Offset = v
	}
	if v, ok := queryInt(query.Get("page")); ok && v > 0 {
		page.Offset = (v - 1) * page.Limit
	}
	return page
}

func WriteTotalCount(w http.ResponseWriter, total int) {
	w.Header().Set(totalCountHeader, strconv.Itoa(total))
}

func queryInt(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	return v, err == nil
}
