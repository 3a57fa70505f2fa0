package changeset

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"

	"github.com/hpungsan/ideaforge/internal/errors"
)

// Parse turns raw generator output into a ChangeSet.
//
// The output is tried as JSON first. If that fails, the first brace-delimited
// object (first '{' to last '}') is extracted and tried, then the same
// substring with comments and trailing commas stripped. The top level must be
// an object with a "changes" array; anything else is a MALFORMED_OUTPUT error.
// Individual entries are read field by field and never fail the parse. When a
// key repeats, its first occurrence is used.
func Parse(raw string) (*ChangeSet, error) {
	doc, ok := locateObject(raw)
	if !ok {
		return nil, errors.NewMalformedOutput("generator output contains no JSON object")
	}

	changes := doc.Get("changes")
	if !changes.IsArray() {
		return nil, errors.NewMalformedOutput("change-set has no \"changes\" array")
	}

	cs := &ChangeSet{Changes: []ChangeRequest{}}
	if summary := doc.Get("summary"); summary.Type == gjson.String {
		cs.Summary = summary.Str
	}

	for _, item := range changes.Array() {
		if !item.IsObject() {
			continue
		}
		cs.Changes = append(cs.Changes, readRequest(item))
	}
	return cs, nil
}

// readRequest copies presence- and type-checked fields out of one entry.
func readRequest(item gjson.Result) ChangeRequest {
	var req ChangeRequest
	if p := item.Get("path"); p.Type == gjson.String {
		req.Path = p.Str
	}
	if a := item.Get("action"); a.Type == gjson.String {
		req.Action = Action(a.Str)
	}
	if c := item.Get("content"); c.Type == gjson.String {
		content := c.Str
		req.Content = &content
	}
	return req
}

// locateObject returns the first parse strategy that yields a JSON object.
func locateObject(raw string) (gjson.Result, bool) {
	trimmed := strings.TrimSpace(raw)
	if r, ok := asObject(trimmed); ok {
		return r, true
	}

	candidate, found := ExtractJSON(raw)
	if !found {
		return gjson.Result{}, false
	}
	if r, ok := asObject(candidate); ok {
		return r, true
	}
	return asObject(string(jsonc.ToJSON([]byte(candidate))))
}

func asObject(s string) (gjson.Result, bool) {
	if s == "" || !gjson.Valid(s) {
		return gjson.Result{}, false
	}
	r := gjson.Parse(s)
	if !r.IsObject() {
		return gjson.Result{}, false
	}
	return r, true
}

// ExtractJSON returns the substring from the first '{' to the last '}' of raw.
// It reports false when raw has no such pair. The result is not validated.
func ExtractJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}
