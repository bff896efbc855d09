package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"story-tasker-api/internal/config"

	"github.com/kaptinlin/jsonrepair"
)

// Extractor pulls a decoded JSON value out of raw model text. The result
// is the generic decoding (map[string]any, []any, ...) handed to the
// schema validator.
type Extractor interface {
	Extract(content string) (any, error)
}

var (
	errNoJSONObject = errors.New("no JSON object found in model output")
	errNoFence      = errors.New("no fenced json block found in model output")

	// first "{" to last "}", spanning newlines
	greedyObject = regexp.MustCompile(`(?s)\{.*\}`)
	fencedBlock  = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\r?\n?(.*?)```")
)

// NewExtractor returns the extraction strategy registered under name
func NewExtractor(name string) (Extractor, error) {
	switch name {
	case config.ExtractorGreedy, "":
		return GreedyExtractor{}, nil
	case config.ExtractorBalanced:
		return BalancedExtractor{}, nil
	case config.ExtractorFenced:
		return FencedExtractor{}, nil
	case config.ExtractorRepair:
		return RepairExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", name)
	}
}

func decode(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// GreedyExtractor parses the whole content strictly and, failing that, the
// span from the first "{" to the last "}". It over-captures when the model
// emits several JSON-like fragments.
type GreedyExtractor struct{}

func (GreedyExtractor) Extract(content string) (any, error) {
	if v, err := decode(content); err == nil {
		return v, nil
	}
	match := greedyObject.FindString(content)
	if match == "" {
		return nil, errNoJSONObject
	}
	v, err := decode(match)
	if err != nil {
		return nil, fmt.Errorf("decode extracted object: %w", err)
	}
	return v, nil
}

// BalancedExtractor parses the whole content strictly and, failing that, the
// first brace-balanced object that decodes. Braces inside string literals
// are not counted.
type BalancedExtractor struct{}

func (BalancedExtractor) Extract(content string) (any, error) {
	if v, err := decode(content); err == nil {
		return v, nil
	}

	var lastErr error = errNoJSONObject
	for start := strings.IndexByte(content, '{'); start != -1; {
		end := matchingBrace(content, start)
		if end == -1 {
			break
		}
		v, err := decode(content[start : end+1])
		if err == nil {
			return v, nil
		}
		lastErr = fmt.Errorf("decode balanced object: %w", err)

		next := strings.IndexByte(content[start+1:], '{')
		if next == -1 {
			break
		}
		start += next + 1
	}
	return nil, lastErr
}

// matchingBrace returns the index of the "}" closing the object opened at
// start, or -1 when the object is unterminated.
func matchingBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// FencedExtractor only accepts JSON inside a ``` fenced block, preferring
// the first block that decodes.
type FencedExtractor struct{}

func (FencedExtractor) Extract(content string) (any, error) {
	blocks := fencedBlock.FindAllStringSubmatch(content, -1)
	if len(blocks) == 0 {
		return nil, errNoFence
	}
	var lastErr error
	for _, block := range blocks {
		v, err := decode(strings.TrimSpace(block[1]))
		if err == nil {
			return v, nil
		}
		lastErr = fmt.Errorf("decode fenced block: %w", err)
	}
	return nil, lastErr
}

// RepairExtractor runs the greedy strategy and, when it fails, repairs the
// greedy match (or the whole content) with jsonrepair before decoding.
// Trailing commas, single quotes and truncated output are recovered this way.
type RepairExtractor struct{}

func (RepairExtractor) Extract(content string) (any, error) {
	v, err := GreedyExtractor{}.Extract(content)
	if err == nil {
		return v, nil
	}

	candidate := greedyObject.FindString(content)
	if candidate == "" {
		start := strings.IndexByte(content, '{')
		if start == -1 {
			return nil, errNoJSONObject
		}
		candidate = content[start:]
	}

	repaired, repairErr := jsonrepair.JSONRepair(candidate)
	if repairErr != nil {
		return nil, fmt.Errorf("repair model output: %w", repairErr)
	}
	v, err = decode(repaired)
	if err != nil {
		return nil, fmt.Errorf("decode repaired output: %w", err)
	}
	return v, nil
}
