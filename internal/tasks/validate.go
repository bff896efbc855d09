package tasks

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const schemaURL = "https://story-tasker.local/schemas/task_batch.json"

//go:embed task_batch.schema.json
var schemaJSON []byte

var (
	batchSchema = mustCompileSchema()
	printer     = message.NewPrinter(language.English)
)

func mustCompileSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("tasks: parse schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		panic(fmt.Sprintf("tasks: add schema: %v", err))
	}
	return c.MustCompile(schemaURL)
}

// Validate checks a generically decoded JSON value (as produced by
// encoding/json into interface{}) against the TaskBatch schema.
//
// Unknown fields are ignored. "done" defaults to false when absent,
// "priority" is optional but must be low, medium or high when present.
// Any invalid element rejects the whole batch. The input is not modified.
func Validate(value interface{}) (TaskBatch, error) {
	if err := batchSchema.Validate(value); err != nil {
		var serr *jsonschema.ValidationError
		if !errors.As(err, &serr) {
			return TaskBatch{}, &ValidationError{Issues: []Issue{{Message: err.Error()}}}
		}
		return TaskBatch{}, &ValidationError{Issues: collectIssues(serr)}
	}

	// The schema guarantees every shape assertion below.
	items := value.(map[string]interface{})["tasks"].([]interface{})
	batch := TaskBatch{Tasks: make([]Task, 0, len(items))}
	for _, item := range items {
		obj := item.(map[string]interface{})
		task := Task{
			ID:    obj["id"].(string),
			Title: obj["title"].(string),
		}
		if done, ok := obj["done"].(bool); ok {
			task.Done = done
		}
		if p, ok := obj["priority"].(string); ok {
			task.Priority = Priority(p)
		}
		batch.Tasks = append(batch.Tasks, task)
	}
	return batch, nil
}

type located struct {
	loc   []string
	issue Issue
}

// collectIssues flattens the leaf causes of a schema error into issues
// ordered by their position in the instance.
func collectIssues(root *jsonschema.ValidationError) []Issue {
	var found []located
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		found = append(found, leafIssues(e)...)
	}
	walk(root)

	slices.SortStableFunc(found, func(a, b located) int { return compareLocations(a.loc, b.loc) })

	issues := make([]Issue, 0, len(found))
	for _, f := range found {
		issues = append(issues, f.issue)
	}
	return issues
}

func leafIssues(e *jsonschema.ValidationError) []located {
	switch k := e.ErrorKind.(type) {
	case *kind.Required:
		out := make([]located, 0, len(k.Missing))
		for _, prop := range k.Missing {
			loc := append(slices.Clone(e.InstanceLocation), prop)
			out = append(out, located{loc: loc, issue: Issue{Path: formatPath(loc), Message: "required"}})
		}
		return out
	case *kind.Type:
		return single(e, fmt.Sprintf("expected %s, received %s", strings.Join(k.Want, " or "), k.Got))
	case *kind.Enum:
		want := make([]string, 0, len(k.Want))
		for _, w := range k.Want {
			want = append(want, fmt.Sprint(w))
		}
		return single(e, fmt.Sprintf("invalid enum value %s, expected one of %s", jsonText(k.Got), strings.Join(want, "|")))
	case *kind.MinLength:
		unit := "character"
		if k.Want != 1 {
			unit += "s"
		}
		return single(e, fmt.Sprintf("must contain at least %d %s", k.Want, unit))
	default:
		return single(e, e.ErrorKind.LocalizedString(printer))
	}
}

func single(e *jsonschema.ValidationError, msg string) []located {
	return []located{{loc: e.InstanceLocation, issue: Issue{Path: formatPath(e.InstanceLocation), Message: msg}}}
}

// formatPath renders an instance location as tasks[0].id.
func formatPath(loc []string) string {
	var sb strings.Builder
	for _, tok := range loc {
		if _, err := strconv.Atoi(tok); err == nil {
			sb.WriteString("[" + tok + "]")
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(tok)
	}
	return sb.String()
}

func compareLocations(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		ai, aerr := strconv.Atoi(a[i])
		bi, berr := strconv.Atoi(b[i])
		if aerr == nil && berr == nil {
			if ai != bi {
				return ai - bi
			}
			continue
		}
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func jsonText(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
