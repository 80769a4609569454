package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"civicsync-api/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
}).ParseFS(templateFS, "templates/*.html"))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// IssueCreated confirms a new report to its reporter.
func IssueCreated(issue *models.Issue, user *models.User) (Message, error) {
	html, err := render("issue_created.html", map[string]any{"Issue": issue, "User": user})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      user.Email,
		Subject: "Issue Reported Successfully - CivicSync",
		HTML:    html,
	}, nil
}

// StatusUpdate tells the reporter an issue moved to a new status.
func StatusUpdate(issue *models.Issue, user *models.User) (Message, error) {
	html, err := render("status_update.html", map[string]any{"Issue": issue, "User": user})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Issue Status Updated: %s - CivicSync", issue.Status),
		HTML:    html,
	}, nil
}

func Welcome(user *models.User) (Message, error) {
	html, err := render("welcome.html", map[string]any{"User": user})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      user.Email,
		Subject: "Welcome to CivicSync!",
		HTML:    html,
	}, nil
}
