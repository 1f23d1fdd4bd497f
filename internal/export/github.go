// Package export files action items as GitHub issues.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v68/github"
	"github.com/scrumkit/scrumkit/internal/config"
	"github.com/scrumkit/scrumkit/internal/models"
	"golang.org/x/oauth2"
)

// ErrDisabled is returned when no repository is configured.
var ErrDisabled = errors.New("export: github repository not configured")

// IssueService is the subset of the GitHub issues API used for export.
type IssueService interface {
	Create(ctx context.Context, owner, repo string, issue *github.IssueRequest) (*github.Issue, *github.Response, error)
}

// Batch is the set of action items to export, with the session context
// used to describe them.
type Batch struct {
	SessionName string
	SprintName  string
	Link        string
	Actions     []models.ActionItem
}

// Result is the outcome for one action item.
type Result struct {
	ActionID string `json:"actionId"`
	Number   int    `json:"number,omitempty"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// GitHub creates one issue per unfinished action item.
type GitHub struct {
	issues IssueService
	owner  string
	repo   string
	labels []string
}

// NewGitHub returns an exporter for cfg authenticated with the configured
// token. It returns ErrDisabled when cfg names no repository.
func NewGitHub(ctx context.Context, cfg config.GitHubConfig) (*GitHub, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	token := cfg.Token()
	if token == "" {
		return nil, fmt.Errorf("export: %s is not set", cfg.TokenEnv)
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return NewGitHubWithService(github.NewClient(httpClient).Issues, cfg), nil
}

// NewGitHubWithService returns an exporter over an existing issue service.
func NewGitHubWithService(issues IssueService, cfg config.GitHubConfig) *GitHub {
	return &GitHub{issues: issues, owner: cfg.Owner, repo: cfg.Repo, labels: cfg.Labels}
}

// Repo returns owner/repo.
func (g *GitHub) Repo() string { return g.owner + "/" + g.repo }

// Export creates issues for every action item not yet done. Failures are
// recorded per item; the call fails only if the context ends.
func (g *GitHub) Export(ctx context.Context, b Batch) ([]Result, error) {
	var results []Result
	for _, a := range b.Actions {
		if a.Status == models.ActionDone {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		req := &github.IssueRequest{
			Title: github.Ptr(issueTitle(a.Description)),
			Body:  github.Ptr(issueBody(b, a)),
		}
		labels := append([]string{}, g.labels...)
		labels = append(labels, "priority:"+a.Priority)
		req.Labels = &labels

		issue, _, err := g.issues.Create(ctx, g.owner, g.repo, req)
		if err != nil {
			results = append(results, Result{ActionID: a.ID, Error: err.Error()})
			continue
		}
		results = append(results, Result{ActionID: a.ID, Number: issue.GetNumber(), URL: issue.GetHTMLURL()})
	}
	return results, nil
}

// issueTitle uses the first line of the description, capped for GitHub's
// title field.
func issueTitle(desc string) string {
	title, _, _ := strings.Cut(strings.TrimSpace(desc), "\n")
	if r := []rune(title); len(r) > 120 {
		title = string(r[:119]) + "…"
	}
	return title
}

func issueBody(b Batch, a models.ActionItem) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(a.Description))
	sb.WriteString("\n\n---\n")
	fmt.Fprintf(&sb, "- Retrospective: %s\n", b.SessionName)
	if b.SprintName != "" {
		fmt.Fprintf(&sb, "- Sprint: %s\n", b.SprintName)
	}
	fmt.Fprintf(&sb, "- Priority: %s\n", a.Priority)
	fmt.Fprintf(&sb, "- Status: %s\n", a.Status)
	if a.AssigneeName != nil && *a.AssigneeName != "" {
		fmt.Fprintf(&sb, "- Owner: %s\n", *a.AssigneeName)
	}
	if a.DueDate != nil {
		fmt.Fprintf(&sb, "- Due: %s\n", a.DueDate.Format("2006-01-02"))
	}
	if b.Link != "" {
		fmt.Fprintf(&sb, "\n[Open retrospective](%s)\n", b.Link)
	}
	return sb.String()
}
