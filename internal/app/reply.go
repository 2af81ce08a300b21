package app

import (
	"encoding/json"
	"strings"
)

// Reply is what the completion service produced for one question. It is
// either a StructuredReply or a FallbackReply; callers switch on the type.
type Reply interface {
	isReply()
}

// StructuredReply is a model output that followed the requested JSON shape.
type StructuredReply struct {
	Message            string
	RecommendQuestions []string
}

// FallbackReply carries model output that could not be read as the
// requested JSON object. Raw is kept verbatim.
type FallbackReply struct {
	Raw string
}

func (StructuredReply) isReply() {}
func (FallbackReply) isReply()   {}

type replyPayload struct {
	Message            *string  `json:"message"`
	RecommendQuestions []string `json:"recommend_questions"`
}

// ParseReply reads raw as {"message": ..., "recommend_questions": [...]}.
// A surrounding markdown code fence is tolerated.
func ParseReply(raw string) Reply {
	body := stripCodeFence(strings.TrimSpace(raw))
	if !strings.HasPrefix(body, "{") {
		return FallbackReply{Raw: raw}
	}

	var payload replyPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil || payload.Message == nil {
		return FallbackReply{Raw: raw}
	}

	questions := make([]string, 0, len(payload.RecommendQuestions))
	for _, q := range payload.RecommendQuestions {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	return StructuredReply{
		Message:            *payload.Message,
		RecommendQuestions: questions,
	}
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	// drop a language tag such as ```json
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.Contains(s[:nl], "{") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(s)
}
