package github

import (
	"errors"
	"fmt"
	"net/http"

	gogithub "github.com/google/go-github/v67/github"

	apperrors "github.com/charlesng35/issuerelay/pkg/errors"
)

// Kind classifies why a fetch failed.
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindForbidden   Kind = "forbidden"
	KindRateLimited Kind = "rate_limited"
	KindUnavailable Kind = "unavailable"
)

// FetchError is returned when an issue could not be fetched from GitHub. It is never a
// cache failure; see cache.IsCacheError.
type FetchError struct {
	Owner      string
	Repo       string
	Number     int
	StatusCode int
	Kind       Kind
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s/%s#%d: %s (status %d): %v", e.Owner, e.Repo, e.Number, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s/%s#%d: %s: %v", e.Owner, e.Repo, e.Number, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AsAppError maps the failure onto the API error catalogue.
func (e *FetchError) AsAppError() *apperrors.AppError {
	switch e.Kind {
	case KindNotFound:
		return apperrors.ErrIssueNotFound.WithInternal(e)
	case KindForbidden:
		return apperrors.ErrUpstreamForbidden.WithInternal(e)
	case KindRateLimited:
		return apperrors.ErrUpstreamRateLimited.WithInternal(e)
	default:
		return apperrors.ErrUpstreamUnavailable.WithInternal(e)
	}
}

// IsNotFound reports whether err is a fetch error for a missing issue.
func IsNotFound(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr) && fetchErr.Kind == KindNotFound
}

func wrapError(err error, resp *gogithub.Response, owner, repo string, number int) *FetchError {
	fetchErr := &FetchError{Owner: owner, Repo: repo, Number: number, Err: err, Kind: KindUnavailable}

	if resp != nil {
		fetchErr.StatusCode = resp.StatusCode
	}
	var ghErr *gogithub.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		fetchErr.StatusCode = ghErr.Response.StatusCode
	}

	var rateErr *gogithub.RateLimitError
	var abuseErr *gogithub.AbuseRateLimitError
	switch {
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		fetchErr.Kind = KindRateLimited
	case fetchErr.StatusCode == http.StatusNotFound, fetchErr.StatusCode == http.StatusGone:
		fetchErr.Kind = KindNotFound
	case fetchErr.StatusCode == http.StatusTooManyRequests:
		fetchErr.Kind = KindRateLimited
	case fetchErr.StatusCode == http.StatusUnauthorized, fetchErr.StatusCode == http.StatusForbidden:
		fetchErr.Kind = KindForbidden
	}
	return fetchErr
}
