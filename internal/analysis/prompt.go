package analysis

import (
	"strings"
	"text/template"
	"time"

	"github.com/yashwanth-reddy909/ghia/internal/types"
)

const systemPrompt = `You are a helpful assistant that analyzes GitHub issues.
You will be given a list of issues and a prompt asking you to analyze them.
Provide clear, actionable insights based on the issues provided.`

// NoIssuesText stands in for the issue list when the cache is empty.
const NoIssuesText = "No issues found."

var userTemplate = template.Must(template.New("user").Funcs(template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"date": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	"desc": func(issue *types.IssueSnapshot) string {
		if body := strings.TrimSpace(issue.BodyText()); body != "" {
			return body
		}
		return "(no description)"
	},
}).Parse(`Here are the GitHub issues to analyze:

{{if .Issues}}{{range $i, $issue := .Issues}}Issue #{{inc $i}}:
- Title: {{$issue.Title}}
- Created: {{date $issue.CreatedAt}}
- URL: {{$issue.URL}}
- Description: {{desc $issue}}

{{end}}{{else}}` + NoIssuesText + `

{{end}}---

User's request: {{.Prompt}}`))

// FormatPrompt renders the user message sent to the model: the numbered
// issue list followed by the request.
func FormatPrompt(issues []*types.IssueSnapshot, prompt string) (string, error) {
	var sb strings.Builder
	err := userTemplate.Execute(&sb, struct {
		Issues []*types.IssueSnapshot
		Prompt string
	}{issues, prompt})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
