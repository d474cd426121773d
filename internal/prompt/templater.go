// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package prompt renders the text sent to an image generator for a given
// page, selecting between a "full" template (page content, type, full
// outline, and user topic) and a "short" template (page content and type
// only) per provider config.
package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
)

//go:embed templates/full.tmpl
var fullTemplateSource string

//go:embed templates/short.tmpl
var shortTemplateSource string

// Data is the set of placeholders a template may reference.
type Data struct {
	PageContent string
	PageType    string
	FullOutline string
	UserTopic   string
}

// Templater renders prompts from the two compiled-once templates.
type Templater struct {
	full  *template.Template
	short *template.Template // nil if unavailable
}

// NewTemplater parses the embedded default templates on every call. It
// never fails on the embedded sources as shipped, but returns an error if
// they were somehow replaced with invalid syntax.
func NewTemplater() (*Templater, error) {
	full, err := template.New("full").Parse(fullTemplateSource)
	if err != nil {
		return nil, fmt.Errorf("parse full prompt template: %w", err)
	}

	t := &Templater{full: full}

	if shortTemplateSource != "" {
		short, err := template.New("short").Parse(shortTemplateSource)
		if err != nil {
			return nil, fmt.Errorf("parse short prompt template: %w", err)
		}
		t.short = short
	}

	return t, nil
}

// Render produces the prompt text for a page. When useShort is true but no
// short template was loaded, it silently falls back to the full template,
// per the spec.
func (t *Templater) Render(useShort bool, data Data) (string, error) {
	tmpl := t.full
	if useShort && t.short != nil {
		tmpl = t.short
	}

	if data.UserTopic == "" {
		data.UserTopic = "not provided"
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}
