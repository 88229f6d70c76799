package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// DecodeLLMJSON unmarshals a model reply into target. Replies wrapped in a
// markdown fence or surrounded by prose are accepted as long as they contain
// one JSON object.
func DecodeLLMJSON(content string, target any) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("empty payload")
	}
	for _, candidate := range jsonCandidates(content) {
		if gjson.Valid(candidate) {
			return json.Unmarshal([]byte(candidate), target)
		}
	}
	return fmt.Errorf("no json object in reply: %s", snippet(content))
}

// jsonCandidates lists progressively looser readings of a reply.
func jsonCandidates(content string) []string {
	out := []string{content}
	body := unfence(content)
	if body != content {
		out = append(out, body)
	}
	start := strings.IndexByte(body, '{')
	end := strings.LastIndexByte(body, '}')
	if start >= 0 && end > start {
		out = append(out, body[start:end+1])
	}
	return out
}

func unfence(content string) string {
	body, ok := strings.CutPrefix(content, "```")
	if !ok {
		return content
	}
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	if i := strings.LastIndex(body, "```"); i >= 0 {
		body = body[:i]
	}
	return strings.TrimSpace(body)
}

func snippet(content string) string {
	const limit = 160
	clean := []rune(strings.Join(strings.Fields(content), " "))
	if len(clean) > limit {
		return string(clean[:limit]) + "..."
	}
	return string(clean)
}
