package github

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// maxPageBytes bounds a single page response. 100 issues with long bodies
// stay well below it.
const maxPageBytes = 32 << 20

// PageIterator fetches pages of a paginated GitHub list endpoint.
// Next returns nil, nil once every page has been consumed.
//
// The Link header drives pagination. When a response carries no Link header
// at all, a full page is taken to mean another one may follow and the page
// query parameter is incremented.
//
// The iterator is not safe for concurrent use.
type PageIterator[T any] struct {
	client  *Client
	nextURL string
	page    int
	perPage int
	done    bool
}

func list[T any](client *Client, path string, perPage int) *PageIterator[T] {
	return &PageIterator[T]{
		client:  client,
		nextURL: client.baseURL + path,
		page:    1,
		perPage: perPage,
	}
}

// Next fetches the next page of results.
func (iterator *PageIterator[T]) Next(ctx context.Context) ([]T, error) {
	if iterator.done || iterator.nextURL == "" {
		return nil, nil
	}

	response, err := iterator.client.doRaw(ctx, http.MethodGet, iterator.nextURL)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxPageBytes))
	if err != nil {
		return nil, fetchError("reading response body: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, parseAPIErrorFromBody(response.StatusCode, body)
	}

	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fetchError("decoding page %d: %w", iterator.page, err)
	}

	link := response.Header.Get("Link")
	switch {
	case len(items) == 0:
		iterator.done = true
	case link != "":
		iterator.nextURL = parseLinkNext(link)
	case len(items) >= iterator.perPage:
		iterator.nextURL = withPage(iterator.nextURL, iterator.page+1)
	default:
		iterator.nextURL = ""
	}
	if iterator.nextURL == "" {
		iterator.done = true
	}
	iterator.page++

	return items, nil
}

// parseLinkNext extracts the URL with rel="next" from an RFC 5988 Link
// header. Returns empty string if no next link is present.
//
// Format: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkNext(header string) string {
	if header == "" {
		return ""
	}

	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)

		segments := strings.SplitN(part, ";", 2)
		if len(segments) != 2 {
			continue
		}

		urlPart := strings.TrimSpace(segments[0])
		relPart := strings.TrimSpace(segments[1])

		if !strings.Contains(relPart, `rel="next"`) {
			continue
		}

		if strings.HasPrefix(urlPart, "<") && strings.HasSuffix(urlPart, ">") {
			return urlPart[1 : len(urlPart)-1]
		}
	}

	return ""
}

// withPage returns rawURL with its page query parameter set to page.
func withPage(rawURL string, page int) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}
