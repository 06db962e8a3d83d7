package models

import "time"

// Issue states accepted by the tracker.
var IssueStates = []string{"new", "open", "resolved", "on hold", "invalid", "duplicate", "wontfix", "closed"}

// Issue is a Bitbucket issue-tracker item.
type Issue struct {
	ID        int64         `json:"id"`
	Title     string        `json:"title,omitempty"`
	Content   *IssueContent `json:"content,omitempty"`
	Reporter  *User         `json:"reporter,omitempty"`
	Assignee  *User         `json:"assignee,omitempty"`
	State     string        `json:"state,omitempty"`
	Kind      string        `json:"kind,omitempty"`
	Priority  string        `json:"priority,omitempty"`
	Milestone *NamedRef     `json:"milestone,omitempty"`
	Component *NamedRef     `json:"component,omitempty"`
	Version   *NamedRef     `json:"version,omitempty"`
	Votes     int           `json:"votes,omitempty"`
	Watches   int           `json:"watches,omitempty"`
	CreatedOn *time.Time    `json:"created_on,omitempty"`
	UpdatedOn *time.Time    `json:"updated_on,omitempty"`
	Links     *Links        `json:"links,omitempty"`
}

// Body returns the raw markdown content, if any.
func (i *Issue) Body() string {
	if i.Content == nil {
		return ""
	}
	return i.Content.Raw
}

// IssueContent carries the issue body in several markups.
type IssueContent struct {
	Raw    string `json:"raw,omitempty"`
	Markup string `json:"markup,omitempty"`
	HTML   string `json:"html,omitempty"`
}

// NamedRef is a milestone, component, or version reference.
type NamedRef struct {
	Name string `json:"name,omitempty"`
}
