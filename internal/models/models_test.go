package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Trimmed real-world payload shapes.
const repoPayload = `{
	"uuid": "{a1b2c3}",
	"name": "website",
	"full_name": "acme/website",
	"slug": "website",
	"is_private": true,
	"scm": "git",
	"workspace": {"slug": "acme", "name": "Acme Inc"},
	"mainbranch": {"name": "main", "type": "branch"},
	"updated_on": "2024-03-01T10:20:30.000000+00:00"
}`

const prPayload = `{
	"id": 42,
	"title": "Fix login redirect",
	"state": "OPEN",
	"author": {"display_name": "Alice", "nickname": "alice"},
	"source": {"branch": {"name": "fix/login"}},
	"destination": {"branch": {"name": "main"}},
	"comment_count": 3
}`

const pipelinePayload = `{
	"uuid": "{p1}",
	"build_number": 117,
	"state": {"name": "COMPLETED", "type": "pipeline_state_completed",
		"result": {"name": "SUCCESSFUL"}},
	"target": {"type": "pipeline_ref_target", "ref_type": "branch", "ref_name": "main"}
}`

func TestRepositoryParse(t *testing.T) {
	var repo Repository
	require.NoError(t, json.Unmarshal([]byte(repoPayload), &repo))

	assert.Equal(t, "acme/website", repo.FullName)
	assert.Equal(t, "private", repo.Visibility())
	assert.Equal(t, "main", repo.MainBranch.Name)
	require.NotNil(t, repo.UpdatedOn)
	assert.Equal(t, 2024, repo.UpdatedOn.Year())
}

func TestPullRequestParse(t *testing.T) {
	var pr PullRequest
	require.NoError(t, json.Unmarshal([]byte(prPayload), &pr))

	assert.Equal(t, int64(42), pr.ID)
	assert.Equal(t, PRStateOpen, pr.State)
	assert.Equal(t, "Alice", pr.Author.Name())

	src, dst := pr.BranchNames()
	assert.Equal(t, "fix/login", src)
	assert.Equal(t, "main", dst)
}

func TestPipelineStatus(t *testing.T) {
	var p Pipeline
	require.NoError(t, json.Unmarshal([]byte(pipelinePayload), &p))

	assert.Equal(t, "COMPLETED/SUCCESSFUL", p.Status())
	assert.Equal(t, "main", p.Ref())

	running := Pipeline{State: &PipelineState{Name: "IN_PROGRESS"}}
	assert.Equal(t, "IN_PROGRESS", running.Status())
}

func TestPageParse(t *testing.T) {
	payload := `{"values": [{"id": 1}, {"id": 2}], "pagelen": 10, "next": "https://api.bitbucket.org/2.0/x?page=2"}`

	var page Page[Issue]
	require.NoError(t, json.Unmarshal([]byte(payload), &page))
	assert.Len(t, page.Values, 2)
	assert.NotEmpty(t, page.Next)
}

func TestUserNameFallback(t *testing.T) {
	assert.Equal(t, "Alice", (&User{DisplayName: "Alice", Username: "a"}).Name())
	assert.Equal(t, "nick", (&User{Nickname: "nick"}).Name())
	assert.Equal(t, "a", (&User{Username: "a"}).Name())
	assert.Empty(t, (*User)(nil).Name())
}
