package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// PageFunc receives each decoded page in order. Returning false stops
// pagination; the pages accumulated so far are still returned.
type PageFunc func(page any) bool

// Link is one entry of a Link header.
type Link struct {
	// Href is the link target with the API base URL stripped.
	Href string

	// Rel is the link relation ("next", "last", "prev", "first").
	Rel string

	// Page is the value of the "page" query parameter, or 0 if absent.
	Page int
}

// PagerInfo is the ordered set of links parsed from one page's headers.
type PagerInfo []Link

var linkPattern = regexp.MustCompile(`<([^>]*)>([^<]*)`)

// ParsePagerInfo parses a Link header of the form
// `<url>; rel="next", <url>; rel="last"`. Hrefs are returned relative to
// baseURL when they start with it.
func ParsePagerInfo(header http.Header, baseURL string) PagerInfo {
	base := normalizeBase(baseURL)
	var info PagerInfo
	for _, value := range header.Values("Link") {
		for _, m := range linkPattern.FindAllStringSubmatch(value, -1) {
			href := strings.TrimSpace(m[1])
			rel := ""
			params := strings.TrimRight(strings.TrimSpace(m[2]), ",")
			for _, param := range strings.Split(params, ";") {
				key, val, ok := strings.Cut(strings.TrimSpace(param), "=")
				if !ok || strings.TrimSpace(key) != "rel" {
					continue
				}
				rel = strings.Trim(strings.TrimSpace(val), `"`)
			}
			if rel == "" {
				continue
			}
			info = append(info, Link{
				Href: stripBase(href, base),
				Rel:  rel,
				Page: pageNumber(href),
			})
		}
	}
	return info
}

func pageNumber(href string) int {
	u, err := url.Parse(href)
	if err != nil {
		return 0
	}
	page, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil {
		return 0
	}
	return page
}

// Find returns the href for the first link with the given relation.
func (p PagerInfo) Find(rel string) string {
	for _, link := range p {
		for _, r := range strings.Fields(link.Rel) {
			if r == rel {
				return link.Href
			}
		}
	}
	return ""
}

// Next returns the "next" href, or "" when there is none.
func (p PagerInfo) Next() string {
	return p.Find("next")
}

// Last returns the "last" href, or "" when there is none.
func (p PagerInfo) Last() string {
	return p.Find("last")
}

// IsLastPage reports whether uri is the page marked rel="last".
func (p PagerInfo) IsLastPage(uri string) bool {
	last := p.Last()
	return last != "" && uri == last
}

// PagedRequest GETs uri and, when the response is a collection, follows
// "next" links until exhausted, merging every page in the order received.
//
// fn is called with each decoded page, starting with the first. Traversal
// stops when fn returns false, there is no next link, the next link repeats
// the current page, or the current page is the one marked rel="last".
// Pages are fetched one at a time.
func (c *Client) PagedRequest(ctx context.Context, uri string, fn PageFunc, params url.Values) (any, error) {
	q := url.Values{}
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	if c.paginated && c.pageSize > 0 && q.Get(c.pageSizeParam) == "" {
		q.Set(c.pageSizeParam, strconv.Itoa(c.pageSize))
	}

	first, err := c.do(ctx, http.MethodGet, uri, q)
	if err != nil {
		return nil, err
	}

	result := first.body
	if fn != nil && !fn(result) {
		return result, nil
	}

	items, ok := AsCollection(result)
	if !ok || len(items) == 0 || !c.paginated {
		return result, nil
	}

	pager := ParsePagerInfo(first.header, c.baseURL)
	current := first.uri
	for {
		next := pager.Next()
		if next == "" || next == current || pager.IsLastPage(current) {
			break
		}

		page, err := c.do(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}
		pageItems, ok := AsCollection(page.body)
		if !ok {
			break
		}
		items = append(items, pageItems...)
		c.logger.Debug("fetched page", "service", c.serviceName, "uri", next, "items", len(items))

		if fn != nil && !fn(page.body) {
			break
		}
		current = next
		pager = ParsePagerInfo(page.header, c.baseURL)
	}

	return items, nil
}

// EachPage walks uri with PagedRequest, decoding every page into []T
// before handing it to fn. Returning false from fn stops paging.
func EachPage[T any](ctx context.Context, c *Client, uri string, params url.Values, fn func([]T) bool) error {
	var decodeErr error
	_, err := c.PagedRequest(ctx, uri, func(page any) bool {
		items, ok := AsCollection(page)
		if !ok {
			decodeErr = fmt.Errorf("%s response at %s is not a collection", c.serviceName, uri)
			return false
		}
		var typed []T
		if err := Convert(items, &typed); err != nil {
			decodeErr = fmt.Errorf("decode %s page: %w", c.serviceName, err)
			return false
		}
		return fn(typed)
	}, params)
	if err != nil {
		return err
	}
	return decodeErr
}

// IsCollection reports whether a decoded body is a sequentially indexed
// list rather than an object.
func IsCollection(body any) bool {
	_, ok := AsCollection(body)
	return ok
}

// AsCollection returns body as an ordered list. JSON arrays qualify, as do
// objects whose keys are exactly "0".."n-1"; every other object does not.
func AsCollection(body any) ([]any, bool) {
	switch v := body.(type) {
	case []any:
		return v, true
	case map[string]any:
		if len(v) == 0 {
			return nil, false
		}
		keys := make([]int, 0, len(v))
		for k := range v {
			n, err := strconv.Atoi(k)
			if err != nil || strconv.Itoa(n) != k {
				return nil, false
			}
			keys = append(keys, n)
		}
		sort.Ints(keys)
		items := make([]any, len(keys))
		for i, n := range keys {
			if n != i {
				return nil, false
			}
			items[i] = v[strconv.Itoa(n)]
		}
		return items, true
	default:
		return nil, false
	}
}
