package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"pocketbook-server/src/models"
)

const (
	lastPage          = "last"
	invalidPageDetail = "Invalid page."
)

var errInvalidPage = errors.New("invalid page")

type pageEnvelope struct {
	Count    int64                `json:"count"`
	Next     *string              `json:"next"`
	Previous *string              `json:"previous"`
	Results  []models.Transaction `json:"results"`
}

// requestedPage parses the page query parameter. It returns 0 for "last".
func requestedPage(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}
	if raw == lastPage {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errInvalidPage
	}
	return n, nil
}

// pageCount is the number of pages for count rows. An empty result still has
// one page.
func pageCount(count int64, size int) int {
	if count == 0 {
		return 1
	}
	return int((count + int64(size) - 1) / int64(size))
}

func pageRequest(number, size int) models.PageRequest {
	return models.PageRequest{Limit: size, Offset: (number - 1) * size}
}

// pageURL returns the absolute URL of the request with the page parameter
// replaced. Page 1 drops the parameter.
func pageURL(r *http.Request, number int) *string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}

	q := r.URL.Query()
	if number == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(number))
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: q.Encode(),
	}
	s := u.String()
	return &s
}

func newPageEnvelope(r *http.Request, page models.TransactionPage, number, size int) pageEnvelope {
	env := pageEnvelope{
		Count:   page.Count,
		Results: page.Items,
	}
	if env.Results == nil {
		env.Results = []models.Transaction{}
	}
	if number < pageCount(page.Count, size) {
		env.Next = pageURL(r, number+1)
	}
	if number > 1 {
		env.Previous = pageURL(r, number-1)
	}
	return env
}
