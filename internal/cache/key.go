package cache

import (
	"fmt"
	"strconv"
	"strings"
)

const issueKeyPrefix = "issue"

// IssueKey derives the cache key for an issue. It is the only key format the cache
// understands; owner and repo are used as given.
func IssueKey(owner, repo string, number int) string {
	return fmt.Sprintf("%s:%s:%s:%d", issueKeyPrefix, owner, repo, number)
}

// ParseIssueKey splits a key built by IssueKey back into its identity. Only the exact
// form IssueKey produces is accepted, so "issue:o:r:01" and "issue:o:r:+1" are rejected
// rather than aliasing the entry for issue 1.
func ParseIssueKey(key string) (owner, repo string, number int, err error) {
	parts := strings.Split(key, ":")
	if len(parts) != 4 || parts[0] != issueKeyPrefix {
		return "", "", 0, fmt.Errorf("cache: malformed issue key %q", key)
	}
	if parts[1] == "" || parts[2] == "" {
		return "", "", 0, fmt.Errorf("cache: issue key %q has empty owner or repo", key)
	}
	number, err = strconv.Atoi(parts[3])
	if err != nil || number < 1 {
		return "", "", 0, fmt.Errorf("cache: issue key %q has invalid number", key)
	}
	if IssueKey(parts[1], parts[2], number) != key {
		return "", "", 0, fmt.Errorf("cache: issue key %q is not canonical", key)
	}
	return parts[1], parts[2], number, nil
}
