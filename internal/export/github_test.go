package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/scrumkit/scrumkit/internal/config"
	"github.com/scrumkit/scrumkit/internal/models"
)

type createdIssue struct {
	owner, repo string
	req         *github.IssueRequest
}

type mockIssues struct {
	created []createdIssue
	failOn  string
}

func (m *mockIssues) Create(_ context.Context, owner, repo string, req *github.IssueRequest) (*github.Issue, *github.Response, error) {
	if m.failOn != "" && strings.Contains(req.GetTitle(), m.failOn) {
		return nil, nil, errors.New("422 validation failed")
	}
	m.created = append(m.created, createdIssue{owner, repo, req})
	n := len(m.created)
	return &github.Issue{
		Number:  github.Ptr(n),
		HTMLURL: github.Ptr(fmt.Sprintf("https://github.com/acme/platform/issues/%d", n)),
	}, nil, nil
}

func testConfig() config.GitHubConfig {
	return config.GitHubConfig{Owner: "acme", Repo: "platform", Labels: []string{"retrospective"}}
}

func TestExport_SkipsDone(t *testing.T) {
	mock := &mockIssues{}
	g := NewGitHubWithService(mock, testConfig())
	owner := "Sam"
	due := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)

	results, err := g.Export(context.Background(), Batch{
		SessionName: "Sprint 42 retro",
		SprintName:  "Sprint 42",
		Link:        "http://app/retrospective/s1",
		Actions: []models.ActionItem{
			{ID: "a1", Description: "Fix flaky tests\nsee CI dashboard", Priority: "high", Status: models.ActionOpen, AssigneeName: &owner, DueDate: &due},
			{ID: "a2", Description: "Already handled", Priority: "low", Status: models.ActionDone},
			{ID: "a3", Description: "Write runbook", Priority: "medium", Status: models.ActionInProgress},
		},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].ActionID != "a1" || results[0].Number != 1 {
		t.Errorf("results[0] = %+v", results[0])
	}
	if results[1].ActionID != "a3" {
		t.Errorf("results[1].ActionID = %q, want a3", results[1].ActionID)
	}

	first := mock.created[0]
	if first.owner != "acme" || first.repo != "platform" {
		t.Errorf("repo = %s/%s, want acme/platform", first.owner, first.repo)
	}
	if first.req.GetTitle() != "Fix flaky tests" {
		t.Errorf("title = %q, want first line of description", first.req.GetTitle())
	}
	body := first.req.GetBody()
	for _, want := range []string{"Retrospective: Sprint 42 retro", "Sprint: Sprint 42", "Owner: Sam", "Due: 2026-11-01", "(http://app/retrospective/s1)"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	labels := *first.req.Labels
	if len(labels) != 2 || labels[0] != "retrospective" || labels[1] != "priority:high" {
		t.Errorf("labels = %v, want [retrospective priority:high]", labels)
	}
	// Exporting must not grow the configured label slice.
	if len(g.labels) != 1 {
		t.Errorf("configured labels mutated: %v", g.labels)
	}
}

func TestExport_PerItemFailure(t *testing.T) {
	mock := &mockIssues{failOn: "broken"}
	g := NewGitHubWithService(mock, testConfig())

	results, err := g.Export(context.Background(), Batch{Actions: []models.ActionItem{
		{ID: "a1", Description: "broken one", Priority: "low", Status: "open"},
		{ID: "a2", Description: "fine one", Priority: "low", Status: "open"},
	}})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if results[0].Error == "" {
		t.Error("results[0] should carry the failure")
	}
	if results[1].Error != "" || results[1].Number != 1 {
		t.Errorf("results[1] = %+v, want created", results[1])
	}
}

func TestExport_CancelledContext(t *testing.T) {
	g := NewGitHubWithService(&mockIssues{}, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Export(ctx, Batch{Actions: []models.ActionItem{{ID: "a1", Description: "x", Status: "open"}}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNewGitHub(t *testing.T) {
	if _, err := NewGitHub(context.Background(), config.GitHubConfig{}); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}

	cfg := testConfig()
	cfg.TokenEnv = "SCRUMKIT_TEST_GH_TOKEN"
	t.Setenv("SCRUMKIT_TEST_GH_TOKEN", "")
	if _, err := NewGitHub(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "SCRUMKIT_TEST_GH_TOKEN") {
		t.Errorf("err = %v, want missing token error", err)
	}

	t.Setenv("SCRUMKIT_TEST_GH_TOKEN", "ghp-test")
	g, err := NewGitHub(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewGitHub: %v", err)
	}
	if g.Repo() != "acme/platform" {
		t.Errorf("Repo = %q, want acme/platform", g.Repo())
	}
}

func TestIssueTitle_Truncates(t *testing.T) {
	long := strings.Repeat("a", 200)
	if n := len([]rune(issueTitle(long))); n != 120 {
		t.Errorf("title length = %d, want 120", n)
	}
}
