package catalog

import (
	"net/url"
	"strconv"
	"strings"
)

type Ordering string

const (
	OrderNewest    Ordering = "-created_at"
	OrderTitle     Ordering = "title"
	OrderPriceAsc  Ordering = "price_amount"
	OrderPriceDesc Ordering = "-price_amount"

	DefaultOrdering = OrderNewest
)

func (o Ordering) Valid() bool {
	switch o {
	case OrderNewest, OrderTitle, OrderPriceAsc, OrderPriceDesc:
		return true
	}
	return false
}

// Query is the part of the catalog state mirrored in the URL.
type Query struct {
	Page     int      `json:"page"`
	Keyword  string   `json:"keyword"`
	Ordering Ordering `json:"ordering"`
}

// Normalize forces q into its canonical form. Unknown orderings fall back to
// the default silently.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	q.Keyword = strings.TrimSpace(q.Keyword)
	if !q.Ordering.Valid() {
		q.Ordering = DefaultOrdering
	}
	return q
}

// Values encodes the normalized query, leaving out every default.
func (q Query) Values() url.Values {
	q = q.Normalize()

	v := make(url.Values)
	if q.Page != 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Keyword != "" {
		v.Set("search", q.Keyword)
	}
	if q.Ordering != DefaultOrdering {
		v.Set("ordering", string(q.Ordering))
	}
	return v
}

func (q Query) Encode() string {
	return q.Values().Encode()
}

// ParseQuery reads page, search and ordering from v. For every normalized q,
// ParseQuery(q.Values()) == q.
func ParseQuery(v url.Values) Query {
	page, err := strconv.Atoi(strings.TrimSpace(v.Get("page")))
	if err != nil {
		page = 1
	}

	return Query{
		Page:     page,
		Keyword:  v.Get("search"),
		Ordering: Ordering(v.Get("ordering")),
	}.Normalize()
}
