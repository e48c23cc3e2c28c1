// Package issue defines the GitHub issue record relayed into chat and cached by the
// two-tier issue cache.
package issue

import (
	"fmt"
	"time"

	"github.com/charlesng35/issuerelay/pkg/validator"
)

// State is the lifecycle state of an issue.
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// Author identifies the user who opened the issue.
type Author struct {
	Login     string `json:"login" validate:"required"`
	AvatarURL string `json:"avatar_url"`
}

// Label is a name/color pair. Color is the six digit hex code GitHub reports, without '#'.
type Label struct {
	Name  string `json:"name" validate:"required"`
	Color string `json:"color" validate:"omitempty,len=6,hexadecimal"`
}

// Issue is a complete issue record. It is always written as a whole; there are no
// partial updates.
//
// Values handed out by the cache are shared, not copied. Treat them as read-only.
type Issue struct {
	Number    int       `json:"number" validate:"min=1"`
	Title     string    `json:"title" validate:"required"`
	Body      *string   `json:"body"`
	State     State     `json:"state" validate:"oneof=open closed"`
	Draft     bool      `json:"draft"`
	Author    Author    `json:"author"`
	Labels    []Label   `json:"labels" validate:"dive"`
	Comments  int       `json:"comments" validate:"min=0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	HTMLURL   string    `json:"html_url" validate:"omitempty,url"`
}

// Validate checks field constraints and the created/updated ordering.
func (i *Issue) Validate() error {
	if i == nil {
		return fmt.Errorf("issue: nil record")
	}
	if err := validator.ValidateStruct(i); err != nil {
		return fmt.Errorf("issue #%d: %w", i.Number, err)
	}
	if !i.CreatedAt.IsZero() && !i.UpdatedAt.IsZero() && i.UpdatedAt.Before(i.CreatedAt) {
		return fmt.Errorf("issue #%d: updated_at %s precedes created_at %s",
			i.Number, i.UpdatedAt.Format(time.RFC3339), i.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

// IsOpen reports whether the issue is open.
func (i *Issue) IsOpen() bool {
	return i != nil && i.State == StateOpen
}

// BodyText returns the body or an empty string when the issue has none.
func (i *Issue) BodyText() string {
	if i == nil || i.Body == nil {
		return ""
	}
	return *i.Body
}

// LabelNames returns label names in their original order.
func (i *Issue) LabelNames() []string {
	if i == nil {
		return nil
	}
	names := make([]string, 0, len(i.Labels))
	for _, label := range i.Labels {
		names = append(names, label.Name)
	}
	return names
}
