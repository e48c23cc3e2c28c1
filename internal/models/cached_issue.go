package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/charlesng35/issuerelay/internal/issue"
)

// CachedIssueLabel is the JSON element stored in the labels column.
type CachedIssueLabel struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CachedIssue is the persistent tier row for one issue. IssueCreatedAt and IssueUpdatedAt
// carry the issue's own timestamps, so they are named to stay out of gorm's autotime handling.
type CachedIssue struct {
	Owner           string                                `gorm:"primaryKey;size:100" json:"owner"`
	Repo            string                                `gorm:"primaryKey;size:100" json:"repo"`
	Number          int                                   `gorm:"primaryKey;autoIncrement:false" json:"number"`
	Title           string                                `gorm:"not null" json:"title"`
	Body            *string                               `json:"body"`
	State           string                                `gorm:"size:16;not null" json:"state"`
	Draft           bool                                  `json:"draft"`
	AuthorLogin     string                                `gorm:"size:100" json:"author_login"`
	AuthorAvatarURL string                                `json:"author_avatar_url"`
	Labels          datatypes.JSONSlice[CachedIssueLabel] `json:"labels"`
	Comments        int                                   `json:"comments"`
	HTMLURL         string                                `json:"html_url"`
	IssueCreatedAt  time.Time                             `gorm:"column:created_at" json:"created_at"`
	IssueUpdatedAt  time.Time                             `gorm:"column:updated_at" json:"updated_at"`
	CachedAt        time.Time                             `json:"cached_at"`
	ExpiresAt       time.Time                             `gorm:"index;not null" json:"expires_at"`
}

// NewCachedIssue builds a row from an issue record. Timestamps are normalised to UTC.
func NewCachedIssue(owner, repo string, number int, record *issue.Issue, cachedAt, expiresAt time.Time) CachedIssue {
	labels := make(datatypes.JSONSlice[CachedIssueLabel], 0, len(record.Labels))
	for _, label := range record.Labels {
		labels = append(labels, CachedIssueLabel{Name: label.Name, Color: label.Color})
	}

	return CachedIssue{
		Owner:           owner,
		Repo:            repo,
		Number:          number,
		Title:           record.Title,
		Body:            record.Body,
		State:           string(record.State),
		Draft:           record.Draft,
		AuthorLogin:     record.Author.Login,
		AuthorAvatarURL: record.Author.AvatarURL,
		Labels:          labels,
		Comments:        record.Comments,
		HTMLURL:         record.HTMLURL,
		IssueCreatedAt:  record.CreatedAt.UTC(),
		IssueUpdatedAt:  record.UpdatedAt.UTC(),
		CachedAt:        cachedAt.UTC(),
		ExpiresAt:       expiresAt.UTC(),
	}
}

// Issue converts the row back into an issue record.
func (c *CachedIssue) Issue() *issue.Issue {
	labels := make([]issue.Label, 0, len(c.Labels))
	for _, label := range c.Labels {
		labels = append(labels, issue.Label{Name: label.Name, Color: label.Color})
	}

	return &issue.Issue{
		Number:    c.Number,
		Title:     c.Title,
		Body:      c.Body,
		State:     issue.State(c.State),
		Draft:     c.Draft,
		Author:    issue.Author{Login: c.AuthorLogin, AvatarURL: c.AuthorAvatarURL},
		Labels:    labels,
		Comments:  c.Comments,
		CreatedAt: c.IssueCreatedAt.UTC(),
		UpdatedAt: c.IssueUpdatedAt.UTC(),
		HTMLURL:   c.HTMLURL,
	}
}

// Live reports whether the row has not yet expired at now.
func (c *CachedIssue) Live(now time.Time) bool {
	return now.Before(c.ExpiresAt)
}
