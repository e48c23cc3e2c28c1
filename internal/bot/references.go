// Package bot turns chat messages and slash commands into issue embeds. It detects
// issue references, resolves them through the issue cache with a GitHub fallback and
// renders the result for Discord.
package bot

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/charlesng35/issuerelay/internal/cache"
	"github.com/charlesng35/issuerelay/pkg/validator"
)

// DefaultMaxReferences caps how many references one message expands.
const DefaultMaxReferences = 3

const githubHost = "github.com"

var (
	fencedCodePattern = regexp.MustCompile("(?s)```.*?```")
	inlineCodePattern = regexp.MustCompile("`[^`\n]*`")

	urlReferencePattern  = regexp.MustCompile(`https?://(?:www\.)?github\.com/([A-Za-z0-9][A-Za-z0-9._-]*)/([A-Za-z0-9][A-Za-z0-9._-]*)/(?:issues|pull)/(\d{1,9})\b`)
	fullReferencePattern = regexp.MustCompile(`(?:^|[^\w/.-])([A-Za-z0-9][A-Za-z0-9._-]*)/([A-Za-z0-9][A-Za-z0-9._-]*)#(\d{1,9})\b`)
	bareReferencePattern = regexp.MustCompile(`(?:^|[^\w/#&.-])#(\d{1,9})\b`)
)

// Reference identifies one issue on GitHub.
type Reference struct {
	Owner  string
	Repo   string
	Number int
}

// Normalize lowercases owner and repo. GitHub names are case-insensitive, so the
// normalized form is what the cache is keyed on.
func (r Reference) Normalize() Reference {
	r.Owner = strings.ToLower(r.Owner)
	r.Repo = strings.ToLower(r.Repo)
	return r
}

// Key returns the cache key for the normalized reference.
func (r Reference) Key() string {
	n := r.Normalize()
	return cache.IssueKey(n.Owner, n.Repo, n.Number)
}

func (r Reference) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// URL is the web address of the issue.
func (r Reference) URL() string {
	return fmt.Sprintf("https://%s/%s/%s/issues/%d", githubHost, r.Owner, r.Repo, r.Number)
}

// Valid reports whether owner and repo are GitHub names and the number is positive.
func (r Reference) Valid() bool {
	return r.Number > 0 && validator.IsGitHubName(r.Owner) && validator.IsGitHubName(r.Repo)
}

// ParseRepository splits "owner/repo".
func ParseRepository(value string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimSpace(value), "/")
	if len(parts) != 2 || !validator.IsGitHubName(parts[0]) || !validator.IsGitHubName(parts[1]) {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/repo", value)
	}
	return parts[0], parts[1], nil
}

// ParseReference accepts "owner/repo#123" or an issue or pull request URL.
func ParseReference(value string) (Reference, error) {
	value = strings.TrimSpace(value)

	if u, err := url.Parse(value); err == nil && u.Host != "" {
		host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if host == githubHost && len(parts) == 4 && (parts[2] == "issues" || parts[2] == "pull") {
			return buildReference(parts[0], parts[1], parts[3], value)
		}
		return Reference{}, fmt.Errorf("invalid issue url %q", value)
	}

	repoPart, numberPart, ok := strings.Cut(value, "#")
	if !ok {
		return Reference{}, fmt.Errorf("invalid reference %q, expected owner/repo#number", value)
	}
	owner, repo, err := ParseRepository(repoPart)
	if err != nil {
		return Reference{}, err
	}
	return buildReference(owner, repo, numberPart, value)
}

func buildReference(owner, repo, number, raw string) (Reference, error) {
	n, err := strconv.Atoi(number)
	if err != nil || n < 1 {
		return Reference{}, fmt.Errorf("invalid issue number in %q", raw)
	}
	ref := Reference{Owner: owner, Repo: repo, Number: n}
	if !ref.Valid() {
		return Reference{}, fmt.Errorf("invalid reference %q", raw)
	}
	return ref, nil
}

// DetectOptions tunes DetectReferences.
type DetectOptions struct {
	// DefaultOwner and DefaultRepo enable bare "#123" references.
	DefaultOwner  string
	DefaultRepo   string
	MaxReferences int
}

type match struct {
	pos int
	ref Reference
}

// DetectReferences finds issue references in free text, in order of appearance.
// Code spans are skipped, duplicates are dropped and at most MaxReferences are returned.
// Returned references are normalized.
func DetectReferences(text string, opts DetectOptions) []Reference {
	limit := opts.MaxReferences
	if limit <= 0 {
		limit = DefaultMaxReferences
	}

	text = blankOut(text, fencedCodePattern)
	text = blankOut(text, inlineCodePattern)

	var matches []match
	for _, idx := range urlReferencePattern.FindAllStringSubmatchIndex(text, -1) {
		matches = appendMatch(matches, idx[0], text[idx[2]:idx[3]], text[idx[4]:idx[5]], text[idx[6]:idx[7]])
	}
	for _, idx := range fullReferencePattern.FindAllStringSubmatchIndex(text, -1) {
		matches = appendMatch(matches, idx[2], text[idx[2]:idx[3]], text[idx[4]:idx[5]], text[idx[6]:idx[7]])
	}
	if opts.DefaultOwner != "" && opts.DefaultRepo != "" {
		for _, idx := range bareReferencePattern.FindAllStringSubmatchIndex(text, -1) {
			matches = appendMatch(matches, idx[2], opts.DefaultOwner, opts.DefaultRepo, text[idx[2]:idx[3]])
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })

	seen := make(map[string]struct{}, len(matches))
	refs := make([]Reference, 0, limit)
	for _, m := range matches {
		key := m.ref.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		refs = append(refs, m.ref)
		if len(refs) == limit {
			break
		}
	}
	return refs
}

func appendMatch(matches []match, pos int, owner, repo, number string) []match {
	n, err := strconv.Atoi(number)
	if err != nil || n < 1 {
		return matches
	}
	ref := Reference{Owner: owner, Repo: repo, Number: n}.Normalize()
	if !ref.Valid() {
		return matches
	}
	return append(matches, match{pos: pos, ref: ref})
}

// blankOut replaces every match with spaces so offsets elsewhere stay put.
func blankOut(text string, pattern *regexp.Regexp) string {
	return pattern.ReplaceAllStringFunc(text, func(s string) string {
		return strings.Repeat(" ", len(s))
	})
}
