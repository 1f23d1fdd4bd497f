package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/scrumkit/scrumkit/internal/models"
)

func contents(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Content
	}
	return out
}

func TestGroupItems_OrdersByVotesDescending(t *testing.T) {
	groups := GroupItems([]Item{
		{Category: models.CategoryWentWell, Content: "A", VoteCount: 1},
		{Category: models.CategoryWentWell, Content: "B", VoteCount: 5},
		{Category: models.CategoryWentWell, Content: "C", VoteCount: 3},
	})

	got := strings.Join(contents(groups[0].Items), ",")
	if got != "B,C,A" {
		t.Errorf("went_well order = %s, want B,C,A", got)
	}
}

func TestGroupItems_StableOnTies(t *testing.T) {
	groups := GroupItems([]Item{
		{Category: models.CategoryToImprove, Content: "first", VoteCount: 2},
		{Category: models.CategoryToImprove, Content: "second", VoteCount: 2},
		{Category: models.CategoryToImprove, Content: "top", VoteCount: 4},
		{Category: models.CategoryToImprove, Content: "third", VoteCount: 2},
	})

	got := strings.Join(contents(groups[1].Items), ",")
	if got != "top,first,second,third" {
		t.Errorf("to_improve order = %s, want top,first,second,third", got)
	}
}

func TestGroupItems_FixedCategoryOrder(t *testing.T) {
	groups := GroupItems([]Item{
		{Category: models.CategoryActionItem, Content: "x"},
		{Category: models.CategoryWentWell, Content: "y"},
		{Category: "bogus", Content: "z"},
	})

	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3", len(groups))
	}
	want := []string{models.CategoryWentWell, models.CategoryToImprove, models.CategoryActionItem}
	for i, g := range groups {
		if g.Category != want[i] {
			t.Errorf("groups[%d].Category = %q, want %q", i, g.Category, want[i])
		}
	}
	if len(groups[1].Items) != 0 {
		t.Errorf("to_improve items = %d, want 0", len(groups[1].Items))
	}
	total := 0
	for _, g := range groups {
		total += len(g.Items)
	}
	if total != 2 {
		t.Errorf("grouped items = %d, want 2 (unknown category dropped)", total)
	}
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       Config
		wantTone string
		wantLang string
		wantErr  bool
	}{
		{"defaults", Config{}, ToneInformal, "nl", false},
		{"case folded", Config{Tone: " Formal ", Language: "EN"}, ToneFormal, "en", false},
		{"other language kept", Config{Language: "de"}, ToneInformal, "de", false},
		{"bad tone", Config{Tone: "sarcastic"}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.in
			err := cfg.Normalize()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("err = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Tone != tt.wantTone {
				t.Errorf("Tone = %q, want %q", cfg.Tone, tt.wantTone)
			}
			if cfg.Language != tt.wantLang {
				t.Errorf("Language = %q, want %q", cfg.Language, tt.wantLang)
			}
		})
	}
}

func TestConfigNormalize_DropsBlankFocusAreas(t *testing.T) {
	cfg := Config{FocusAreas: []string{" testing ", "", "  "}}
	if err := cfg.Normalize(); err != nil {
		t.Fatal(err)
	}
	if len(cfg.FocusAreas) != 1 || cfg.FocusAreas[0] != "testing" {
		t.Errorf("FocusAreas = %q, want [testing]", cfg.FocusAreas)
	}
}

func sampleData() Data {
	due := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	return Data{
		SessionName: "Sprint 42 retro",
		SprintName:  "Sprint 42",
		Items: []Item{
			{Category: models.CategoryWentWell, Content: "Pairing on the parser", VoteCount: 1},
			{Category: models.CategoryWentWell, Content: "Release went smoothly", VoteCount: 4, AuthorName: "Dana"},
			{Category: models.CategoryToImprove, Content: "Flaky CI", VoteCount: 3, DiscussionNotes: "Quarantine list"},
		},
		ActionItems: []Action{
			{Description: "Fix flaky tests", AssigneeName: "Sam", Priority: models.PriorityHigh, Status: models.ActionInProgress, DueDate: &due},
			{Description: "Book demo slot", Priority: models.PriorityLow, Status: models.ActionOpen},
		},
	}
}

func TestBuildPrompt_English(t *testing.T) {
	cfg := Config{Tone: ToneFormal, Language: "en", FocusAreas: []string{"testing", "release"}, CustomInstructions: "Keep it short."}
	if err := cfg.Normalize(); err != nil {
		t.Fatal(err)
	}
	p, err := BuildPrompt(sampleData(), cfg)
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}

	for _, want := range []string{"professional", "English"} {
		if !strings.Contains(p.System, want) {
			t.Errorf("System missing %q:\n%s", want, p.System)
		}
	}

	for _, want := range []string{
		`Generate a retrospective report for: "Sprint 42 retro"`,
		"Sprint: Sprint 42",
		"## Went Well (2 items)",
		"- Release went smoothly (4 votes, by Dana)",
		"Notes: Quarantine list",
		"## Action Items (2)",
		"Fix flaky tests | Owner: Sam | Priority: High | Status: In Progress | Due: 2026-11-02",
		"Book demo slot | Owner: Unassigned | Priority: Low | Status: Open",
		"Focus areas: testing, release",
		"Additional instructions: Keep it short.",
	} {
		if !strings.Contains(p.User, want) {
			t.Errorf("User prompt missing %q:\n%s", want, p.User)
		}
	}

	// Most-voted item first within its category.
	if strings.Index(p.User, "Release went smoothly") > strings.Index(p.User, "Pairing on the parser") {
		t.Error("items not ordered by vote count")
	}
}

func TestBuildPrompt_SectionsInOrder(t *testing.T) {
	cfg := Config{Language: "en"}
	cfg.Normalize()
	p, err := BuildPrompt(sampleData(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	last := -1
	for i, title := range []string{"Summary", "What Went Well", "Areas for Improvement", "Action Items -", "Recommendations"} {
		idx := strings.Index(p.User, title)
		if idx < 0 {
			t.Fatalf("section %q missing", title)
		}
		if idx <= last {
			t.Errorf("section %d %q out of order", i+1, title)
		}
		last = idx
	}
}

func TestBuildPrompt_DutchDefault(t *testing.T) {
	var cfg Config
	cfg.Normalize()
	p, err := BuildPrompt(sampleData(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p.System, "toegankelijk") {
		t.Errorf("System = %q, want informal Dutch tone", p.System)
	}
	for _, want := range []string{"## Ging Goed (2 items)", "stemmen", "Eigenaar: Niet toegewezen", "Prioriteit: Hoog", "1. Samenvatting", "5. Aanbevelingen"} {
		if !strings.Contains(p.User, want) {
			t.Errorf("User prompt missing %q", want)
		}
	}
}

func TestBuildPrompt_UnknownLanguageFallsBack(t *testing.T) {
	cfg := Config{Language: "de"}
	cfg.Normalize()
	p, err := BuildPrompt(sampleData(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p.System, `"de"`) {
		t.Errorf("System = %q, want requested language tag", p.System)
	}
	if !strings.Contains(p.User, "## Went Well") {
		t.Error("unknown language should use English labels")
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	cfg := Config{Language: "en"}
	cfg.Normalize()
	a, _ := BuildPrompt(sampleData(), cfg)
	b, _ := BuildPrompt(sampleData(), cfg)
	if a != b {
		t.Error("BuildPrompt output differs between identical calls")
	}
}

func TestBuildPrompt_OmitsEmptyOptionals(t *testing.T) {
	cfg := Config{Language: "en"}
	cfg.Normalize()
	p, err := BuildPrompt(Data{SessionName: "Empty"}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, unwanted := range []string{"Sprint:", "Focus areas", "Additional instructions", "Notes:"} {
		if strings.Contains(p.User, unwanted) {
			t.Errorf("User prompt contains %q for empty input", unwanted)
		}
	}
	if !strings.Contains(p.User, "## Went Well (0 items)") {
		t.Error("empty categories should still be listed")
	}
}

func TestFromModels_UsesRedactedAuthors(t *testing.T) {
	sprint := "S1"
	name := "Alice"
	items := []models.ItemWithVotes{
		{Item: models.Item{Category: models.CategoryWentWell, Content: "x", AuthorName: &name}, VoteCount: 2},
		{Item: models.Item{Category: models.CategoryWentWell, Content: "y", IsAnonymous: true}},
	}
	d := FromModels(&models.Session{Name: "retro", SprintName: &sprint}, items, nil)

	if d.SprintName != "S1" {
		t.Errorf("SprintName = %q, want S1", d.SprintName)
	}
	if d.Items[0].AuthorName != "Alice" || d.Items[0].VoteCount != 2 {
		t.Errorf("Items[0] = %+v", d.Items[0])
	}
	if d.Items[1].AuthorName != "" {
		t.Errorf("anonymous AuthorName = %q, want empty", d.Items[1].AuthorName)
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML("# Summary\n\n- **one**\n- two\n\n<script>alert(1)</script>\n")
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	for _, want := range []string{"<h1>Summary</h1>", "<strong>one</strong>", "<li>two</li>"} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q:\n%s", want, html)
		}
	}
	if strings.Contains(html, "<script>") {
		t.Error("raw HTML passed through")
	}
}
