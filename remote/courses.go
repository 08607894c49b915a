package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ID accepts numeric and string identifiers alike.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if string(b) == "null" {
		*id = ""
		return nil
	}
	*id = ID(b)
	return nil
}

type Course struct {
	ID            ID        `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug,omitempty"`
	Description   string    `json:"description,omitempty"`
	CoverURL      string    `json:"cover_url,omitempty"`
	PriceAmount   string    `json:"price_amount,omitempty"`
	PriceCurrency string    `json:"price_currency,omitempty"`
	Rating        *float64  `json:"rating,omitempty"`
	Students      *int      `json:"students,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type Lesson struct {
	ID       ID     `json:"id"`
	CourseID ID     `json:"course"`
	Title    string `json:"title"`
	Order    int    `json:"order"`
	Free     bool   `json:"is_free,omitempty"`
	Duration int    `json:"duration_seconds,omitempty"`
}

type Review struct {
	ID        ID        `json:"id"`
	Author    string    `json:"author"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type CoursePage struct {
	Count    int      `json:"count"`
	Next     *string  `json:"next"`
	Previous *string  `json:"previous"`
	Results  []Course `json:"results"`
}

func (p CoursePage) HasNext() bool     { return p.Next != nil && *p.Next != "" }
func (p CoursePage) HasPrevious() bool { return p.Previous != nil && *p.Previous != "" }

type ListParams struct {
	Page     int
	PageSize int
	Search   string
	Ordering string
}

func (p ListParams) values() url.Values {
	q := make(url.Values)
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Ordering != "" {
		q.Set("ordering", p.Ordering)
	}
	return q
}

type Health struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
}

func (c *Client) ListCourses(ctx context.Context, p ListParams) (CoursePage, error) {
	var page CoursePage
	err := c.do(ctx, request{method: http.MethodGet, path: "courses/", query: p.values()}, &page)
	if err != nil {
		return CoursePage{}, fmt.Errorf("listing courses: %w", err)
	}
	return page, nil
}

func (c *Client) GetCourse(ctx context.Context, id string) (Course, error) {
	var crs Course
	err := c.do(ctx, request{method: http.MethodGet, path: "courses/" + url.PathEscape(id) + "/"}, &crs)
	if err != nil {
		return Course{}, fmt.Errorf("fetching course[%s]: %w", id, err)
	}
	return crs, nil
}

func (c *Client) ListLessons(ctx context.Context, courseID string) ([]Lesson, error) {
	q := url.Values{"course": {courseID}, "ordering": {"order"}}

	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: "lessons/", query: q}, &raw); err != nil {
		return nil, fmt.Errorf("listing lessons of course[%s]: %w", courseID, err)
	}

	lessons, err := decodeList[Lesson](raw)
	if err != nil {
		return nil, fmt.Errorf("decoding lessons of course[%s]: %w", courseID, err)
	}
	return lessons, nil
}

func (c *Client) ListReviews(ctx context.Context, courseID string) ([]Review, error) {
	var raw json.RawMessage
	err := c.do(ctx, request{method: http.MethodGet, path: "courses/" + url.PathEscape(courseID) + "/reviews/"}, &raw)
	if err != nil {
		return nil, fmt.Errorf("listing reviews of course[%s]: %w", courseID, err)
	}

	reviews, err := decodeList[Review](raw)
	if err != nil {
		return nil, fmt.Errorf("decoding reviews of course[%s]: %w", courseID, err)
	}
	return reviews, nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	if err := c.do(ctx, request{method: http.MethodGet, path: "healthz/"}, &h); err != nil {
		return Health{}, fmt.Errorf("checking health: %w", err)
	}
	return h, nil
}

// Encode renders p as a sorted query string. Equal params encode equally.
func (p ListParams) Encode() string {
	return p.values().Encode()
}
