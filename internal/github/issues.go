package github

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/yashwanth-reddy909/ghia/internal/types"
	"github.com/yashwanth-reddy909/ghia/internal/utils"
)

// Issue is an entry of the "list repository issues" response. GitHub
// returns pull requests from the same endpoint; they carry PullRequest.
type Issue struct {
	ID          int64      `json:"id"`
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Body        *string    `json:"body"`
	HTMLURL     string     `json:"html_url"`
	State       string     `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PullRequest *PullLinks `json:"pull_request,omitempty"`
}

// PullLinks is present only on pull requests.
type PullLinks struct {
	URL string `json:"url"`
}

// IsPullRequest reports whether the entry is a pull request.
func (issue *Issue) IsPullRequest() bool {
	return issue.PullRequest != nil
}

// Snapshot converts the wire entry to the cached representation.
func (issue *Issue) Snapshot(repo string) *types.IssueSnapshot {
	return &types.IssueSnapshot{
		ID:        issue.ID,
		Repo:      repo,
		URL:       issue.HTMLURL,
		CreatedAt: issue.CreatedAt.UTC(),
		Title:     issue.Title,
		Body:      issue.Body,
		UpdatedAt: issue.UpdatedAt.UTC(),
	}
}

// ListOpenIssues returns every open issue of repo ("owner/name") in the
// order GitHub lists them, following pagination to the end. Pull requests
// are dropped.
func (client *Client) ListOpenIssues(ctx context.Context, repo string) ([]*types.IssueSnapshot, error) {
	if err := types.ValidateRepo(repo); err != nil {
		return nil, err
	}
	owner, name, ok := utils.SplitRepo(repo)
	if !ok {
		return nil, &types.ValidationError{Field: "repo", Message: fmt.Sprintf("%q is not in 'owner/repository-name' format", repo)}
	}

	path := fmt.Sprintf("/repos/%s/%s/issues?state=open&per_page=%d",
		url.PathEscape(owner), url.PathEscape(name), client.perPage)
	iterator := list[Issue](client, path, client.perPage)

	issues := []*types.IssueSnapshot{}
	var pulls, pages int
	for {
		page, err := iterator.Next(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}
		pages++
		for i := range page {
			if page[i].IsPullRequest() {
				pulls++
				continue
			}
			issues = append(issues, page[i].Snapshot(repo))
		}
	}

	client.logger.Info("fetched open issues",
		"repo", repo,
		"issues", len(issues),
		"pull_requests_skipped", pulls,
		"pages", pages,
	)
	return issues, nil
}
