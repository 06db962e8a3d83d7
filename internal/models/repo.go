package models

import "time"

// Repository is a Bitbucket repository.
type Repository struct {
	UUID        string     `json:"uuid,omitempty"`
	Name        string     `json:"name,omitempty"`
	FullName    string     `json:"full_name,omitempty"`
	Slug        string     `json:"slug,omitempty"`
	Description string     `json:"description,omitempty"`
	IsPrivate   bool       `json:"is_private,omitempty"`
	SCM         string     `json:"scm,omitempty"`
	Owner       *User      `json:"owner,omitempty"`
	Workspace   *Workspace `json:"workspace,omitempty"`
	Project     *Project   `json:"project,omitempty"`
	CreatedOn   *time.Time `json:"created_on,omitempty"`
	UpdatedOn   *time.Time `json:"updated_on,omitempty"`
	Size        int64      `json:"size,omitempty"`
	Language    string     `json:"language,omitempty"`
	MainBranch  *Branch    `json:"mainbranch,omitempty"`
	Links       *Links     `json:"links,omitempty"`
}

// Visibility returns "private" or "public" for display.
func (r *Repository) Visibility() string {
	if r.IsPrivate {
		return "private"
	}
	return "public"
}

// Project is the Bitbucket project a repository belongs to.
type Project struct {
	UUID string `json:"uuid,omitempty"`
	Key  string `json:"key,omitempty"`
	Name string `json:"name,omitempty"`
}

// Branch is a named ref.
type Branch struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}
