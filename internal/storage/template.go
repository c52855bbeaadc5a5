package storage

import (
	"bytes"
	"fmt"
	"text/template"
)

// PathTemplateData holds the data for path template execution
type PathTemplateData struct {
	Artist string
	Album  string
	Title  string
}

// BuildPath executes the template against data.
func BuildPath(templateStr string, data *PathTemplateData) (string, error) {
	tmpl, err := template.New("path").Option("missingkey=error").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// NewPathTemplateData sanitizes the fields for use as path components.
func NewPathTemplateData(artist, album, title string) *PathTemplateData {
	return &PathTemplateData{
		Artist: Sanitize(artist),
		Album:  Sanitize(album),
		Title:  Sanitize(title),
	}
}
