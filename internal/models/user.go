// Package models defines typed views of the Bitbucket Cloud REST API
// payloads consumed by the CLI.
package models

import "time"

// User is a Bitbucket account as embedded in other resources.
type User struct {
	UUID        string `json:"uuid,omitempty"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Nickname    string `json:"nickname,omitempty"`
	AccountID   string `json:"account_id,omitempty"`
	Links       *Links `json:"links,omitempty"`
}

// Name returns the best display label available.
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}

// Workspace groups repositories under a shared slug.
type Workspace struct {
	UUID string `json:"uuid,omitempty"`
	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`
}

// Link is a single hyperlink in a resource's links map.
type Link struct {
	Href string `json:"href,omitempty"`
	Name string `json:"name,omitempty"`
}

// Links holds the common hyperlinks attached to resources.
type Links struct {
	Self   *Link  `json:"self,omitempty"`
	HTML   *Link  `json:"html,omitempty"`
	Avatar *Link  `json:"avatar,omitempty"`
	Clone  []Link `json:"clone,omitempty"`
}

// Page is one page of a paginated Bitbucket collection. Next is an
// absolute URL for cursor-style pagination; empty means the last page.
type Page[T any] struct {
	Values  []T    `json:"values"`
	Page    int    `json:"page,omitempty"`
	PageLen int    `json:"pagelen,omitempty"`
	Size    int    `json:"size,omitempty"`
	Next    string `json:"next,omitempty"`
}

// FormatTime renders timestamps the way list output expects, blank for
// missing values.
func FormatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}
