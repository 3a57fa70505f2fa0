package ops

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hpungsan/ideaforge/internal/generator"
	"github.com/hpungsan/ideaforge/internal/project"
)

const ideaSystemPrompt = "You are an expert product strategist. Generate strictly 1-2 concise, fresh, non-obvious, and buildable website/SaaS product ideas. " +
	"Avoid cliches, clones, and overused tropes. Keep each idea under 60 words. Do not number or bullet them. Separate multiple ideas with a blank line."

const proposeSystemPrompt = "You are an expert product and engineering advisor. Given a project state JSON, " +
	"propose one concrete, high-impact improvement step that can be implemented next. " +
	"Keep the proposal between 80-160 words. Include a short rationale and specific tasks."

const iterateSystemPrompt = "You are a senior software engineer evolving a small project one step at a time. " +
	"Given the project state and its current files, choose the single most valuable next change and implement it. " +
	"Respond with one JSON object: {\"summary\": string, \"changes\": [{\"path\": string, \"action\": \"create\"|\"update\"|\"delete\", \"content\": string}]}. " +
	"Paths are relative to the project root using forward slashes. create and update carry the complete new file content. " +
	"Only touch source, config and documentation files."

func ideaRequest() generator.Request {
	return generator.Request{
		System:      ideaSystemPrompt,
		User:        "Generate today's ideas.",
		Temperature: 1.0,
		MaxTokens:   400,
		N:           1,
	}
}

func proposeRequest(doc *project.Document) (generator.Request, error) {
	state, err := marshalState(doc)
	if err != nil {
		return generator.Request{}, err
	}
	user := fmt.Sprintf("Project: %s\n\nState (JSON):\n%s\n\nPlease propose the next concrete improvement step.", doc.Slug, state)
	return generator.Request{
		System:      proposeSystemPrompt,
		User:        user,
		Temperature: 0.8,
		MaxTokens:   500,
		N:           1,
	}, nil
}

func iterateRequest(doc *project.Document, tree []project.TreeEntry) (generator.Request, error) {
	state, err := marshalState(doc)
	if err != nil {
		return generator.Request{}, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n\nState (JSON):\n%s\n\nFiles:\n", doc.Slug, state)
	if len(tree) == 0 {
		b.WriteString("(none yet)\n")
	}
	for _, entry := range tree {
		fmt.Fprintf(&b, "- %s\n", entry.Path)
	}
	b.WriteString("\nReturn the JSON change-set for the next step.")
	return generator.Request{
		System:      iterateSystemPrompt,
		User:        b.String(),
		Temperature: 0.4,
		MaxTokens:   4000,
		N:           1,
		JSON:        true,
	}, nil
}

func marshalState(doc *project.Document) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	return string(data), nil
}
