package models

import "time"

// Pull request states as reported by the API.
const (
	PRStateOpen       = "OPEN"
	PRStateMerged     = "MERGED"
	PRStateDeclined   = "DECLINED"
	PRStateSuperseded = "SUPERSEDED"
)

// PullRequest is a Bitbucket pull request.
type PullRequest struct {
	ID                int64         `json:"id"`
	Title             string        `json:"title,omitempty"`
	Description       string        `json:"description,omitempty"`
	State             string        `json:"state,omitempty"`
	Author            *User         `json:"author,omitempty"`
	Source            *PREndpoint   `json:"source,omitempty"`
	Destination       *PREndpoint   `json:"destination,omitempty"`
	MergeCommit       *Commit       `json:"merge_commit,omitempty"`
	CloseSourceBranch bool          `json:"close_source_branch,omitempty"`
	ClosedBy          *User         `json:"closed_by,omitempty"`
	Reason            string        `json:"reason,omitempty"`
	CreatedOn         *time.Time    `json:"created_on,omitempty"`
	UpdatedOn         *time.Time    `json:"updated_on,omitempty"`
	Reviewers         []User        `json:"reviewers,omitempty"`
	Participants      []Participant `json:"participants,omitempty"`
	CommentCount      int           `json:"comment_count,omitempty"`
	TaskCount         int           `json:"task_count,omitempty"`
	Links             *Links        `json:"links,omitempty"`
}

// BranchNames returns "source -> destination" for display.
func (pr *PullRequest) BranchNames() (string, string) {
	var src, dst string
	if pr.Source != nil && pr.Source.Branch != nil {
		src = pr.Source.Branch.Name
	}
	if pr.Destination != nil && pr.Destination.Branch != nil {
		dst = pr.Destination.Branch.Name
	}
	return src, dst
}

// PREndpoint is one side of a pull request.
type PREndpoint struct {
	Branch     *Branch     `json:"branch,omitempty"`
	Commit     *Commit     `json:"commit,omitempty"`
	Repository *Repository `json:"repository,omitempty"`
}

// Commit is a commit reference.
type Commit struct {
	Hash    string `json:"hash,omitempty"`
	Message string `json:"message,omitempty"`
}

// Participant is a user's relationship to a pull request.
type Participant struct {
	User     *User  `json:"user,omitempty"`
	Role     string `json:"role,omitempty"`
	Approved bool   `json:"approved,omitempty"`
}
