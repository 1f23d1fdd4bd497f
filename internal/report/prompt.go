package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/scrumkit/scrumkit/internal/models"
)

// Prompt is the instruction pair sent to the text generation service.
type Prompt struct {
	System string
	User   string
}

type section struct {
	Title string
	Hint  string
}

type labels struct {
	Categories  map[string]string
	Priorities  map[string]string
	Statuses    map[string]string
	Sections    []section
	Intro       string
	Votes       string
	By          string
	Notes       string
	Committed   string
	Owner       string
	Unassigned  string
	Priority    string
	Status      string
	Due         string
	FocusAreas  string
	Extra       string
	SectionList string
	System      string
	Formal      string
	Informal    string
	Language    string
}

var english = labels{
	Categories: map[string]string{
		models.CategoryWentWell:   "Went Well",
		models.CategoryToImprove:  "To Improve",
		models.CategoryActionItem: "Action Items",
	},
	Priorities: map[string]string{models.PriorityLow: "Low", models.PriorityMedium: "Medium", models.PriorityHigh: "High"},
	Statuses:   map[string]string{models.ActionOpen: "Open", models.ActionInProgress: "In Progress", models.ActionDone: "Done"},
	Sections: []section{
		{"Summary", "Brief overview of key points"},
		{"What Went Well", "Highlights and successes"},
		{"Areas for Improvement", "Top issues and suggestions"},
		{"Action Items", "Concrete steps with owners"},
		{"Recommendations", "Tips for the next sprint"},
	},
	Intro:       "Generate a retrospective report for",
	Votes:       "votes",
	By:          "by",
	Notes:       "Notes",
	Committed:   "Action Items",
	Owner:       "Owner",
	Unassigned:  "Unassigned",
	Priority:    "Priority",
	Status:      "Status",
	Due:         "Due",
	FocusAreas:  "Focus areas",
	Extra:       "Additional instructions",
	SectionList: "Write the report in markdown with the following sections, in this order",
	System: "You are an expert at writing Sprint Retrospective reports.\n" +
		"Write a clear, %s report in %s.\n" +
		"The report should be concise but complete and contain actionable insights.",
	Formal:   "professional",
	Informal: "accessible",
	Language: "English",
}

var dutch = labels{
	Categories: map[string]string{
		models.CategoryWentWell:   "Ging Goed",
		models.CategoryToImprove:  "Kan Beter",
		models.CategoryActionItem: "Actiepunten",
	},
	Priorities: map[string]string{models.PriorityLow: "Laag", models.PriorityMedium: "Gemiddeld", models.PriorityHigh: "Hoog"},
	Statuses:   map[string]string{models.ActionOpen: "Open", models.ActionInProgress: "In Uitvoering", models.ActionDone: "Afgerond"},
	Sections: []section{
		{"Samenvatting", "Korte overview van de belangrijkste punten"},
		{"Wat ging goed", "Highlights en successen"},
		{"Verbeterpunten", "Top problemen en suggesties"},
		{"Actiepunten", "Concrete stappen met eigenaren"},
		{"Aanbevelingen", "Tips voor de volgende sprint"},
	},
	Intro:       "Genereer een retrospective rapport voor",
	Votes:       "stemmen",
	By:          "door",
	Notes:       "Notities",
	Committed:   "Concrete Actiepunten",
	Owner:       "Eigenaar",
	Unassigned:  "Niet toegewezen",
	Priority:    "Prioriteit",
	Status:      "Status",
	Due:         "Deadline",
	FocusAreas:  "Focus gebieden",
	Extra:       "Extra instructies",
	SectionList: "Schrijf het rapport in markdown met de volgende secties, in deze volgorde",
	System: "Je bent een expert in het schrijven van Sprint Retrospective rapporten.\n" +
		"Schrijf een duidelijk, %s rapport in het %s.\n" +
		"Het rapport moet beknopt maar volledig zijn en actionable insights bevatten.",
	Formal:   "professioneel",
	Informal: "toegankelijk",
	Language: "Nederlands",
}

// labelsFor returns the label set for a language tag. Unknown tags get the
// English labels with the output language set to the tag itself.
func labelsFor(lang string) labels {
	switch lang {
	case "nl":
		return dutch
	case "en":
		return english
	}
	l := english
	l.Language = fmt.Sprintf("the language with tag %q", lang)
	return l
}

const userTemplate = `{{ .L.Intro }}: "{{ .Data.SessionName }}"
{{- if .Data.SprintName }}
Sprint: {{ .Data.SprintName }}
{{- end }}
{{ range .Groups }}
## {{ index $.L.Categories .Category }} ({{ len .Items }} items)
{{- range .Items }}
- {{ .Content }} ({{ .VoteCount }} {{ $.L.Votes }}{{ if .AuthorName }}, {{ $.L.By }} {{ .AuthorName }}{{ end }})
{{- if .DiscussionNotes }}
  {{ $.L.Notes }}: {{ .DiscussionNotes }}
{{- end }}
{{- end }}
{{ end }}
## {{ .L.Committed }} ({{ len .Data.ActionItems }})
{{- range .Data.ActionItems }}
- {{ .Description }} | {{ $.L.Owner }}: {{ or .AssigneeName $.L.Unassigned }} | {{ $.L.Priority }}: {{ label $.L.Priorities .Priority }} | {{ $.L.Status }}: {{ label $.L.Statuses .Status }}
{{- if .DueDate }} | {{ $.L.Due }}: {{ .DueDate.Format "2006-01-02" }}{{ end }}
{{- end }}
{{ if .Config.FocusAreas }}
{{ .L.FocusAreas }}: {{ join .Config.FocusAreas ", " }}
{{ end }}
{{- if .Config.CustomInstructions }}
{{ .L.Extra }}: {{ .Config.CustomInstructions }}
{{ end }}
{{ .L.SectionList }}:
{{- range $i, $s := .L.Sections }}
{{ inc $i }}. {{ $s.Title }} - {{ $s.Hint }}
{{- end }}
`

var userTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
	"label": func(m map[string]string, key string) string {
		if v, ok := m[key]; ok {
			return v
		}
		return key
	},
}).Parse(userTemplate))

// BuildPrompt renders the system and user prompts for d. cfg must have been
// normalized. The output depends only on its inputs.
func BuildPrompt(d Data, cfg Config) (Prompt, error) {
	l := labelsFor(cfg.Language)

	tone := l.Informal
	if cfg.Tone == ToneFormal {
		tone = l.Formal
	}

	var buf bytes.Buffer
	err := userTmpl.Execute(&buf, struct {
		L      labels
		Data   Data
		Groups []Group
		Config Config
	}{l, d, GroupItems(d.Items), cfg})
	if err != nil {
		return Prompt{}, fmt.Errorf("report: execute template: %w", err)
	}

	return Prompt{
		System: fmt.Sprintf(l.System, tone, l.Language),
		User:   buf.String(),
	}, nil
}
