package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply_Structured(t *testing.T) {
	reply := ParseReply(`{"message":"Hi there","recommend_questions":["a"," b ",""," c"]}`)

	structured, ok := reply.(StructuredReply)
	require.True(t, ok, "expected structured reply, got %T", reply)
	assert.Equal(t, "Hi there", structured.Message)
	assert.Equal(t, []string{"a", "b", "c"}, structured.RecommendQuestions)
}

func TestParseReply_CodeFence(t *testing.T) {
	raw := "```json\n{\"message\":\"fenced\",\"recommend_questions\":[\"x\"]}\n```"

	structured, ok := ParseReply(raw).(StructuredReply)
	require.True(t, ok)
	assert.Equal(t, "fenced", structured.Message)
	assert.Equal(t, []string{"x"}, structured.RecommendQuestions)
}

func TestParseReply_MissingQuestionsIsEmpty(t *testing.T) {
	structured, ok := ParseReply(`{"message":"only text"}`).(StructuredReply)
	require.True(t, ok)
	assert.NotNil(t, structured.RecommendQuestions)
	assert.Empty(t, structured.RecommendQuestions)
}

func TestParseReply_Fallback(t *testing.T) {
	cases := []string{
		"Sure! He works as a cloud security engineer.",
		`{"message": "unterminated`,
		`{"answer":"no message field"}`,
		`["not","an","object"]`,
		"",
	}
	for _, raw := range cases {
		reply := ParseReply(raw)
		fallback, ok := reply.(FallbackReply)
		require.True(t, ok, "raw %q gave %T", raw, reply)
		assert.Equal(t, raw, fallback.Raw)
	}
}

func TestPromptMessages(t *testing.T) {
	msgs := Prompt{Profile: "Name: Test Person", Language: "English"}.Messages(`what is "XDR"?`)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)

	body := msgs[1].Content
	assert.Contains(t, body, "Name: Test Person")
	assert.Contains(t, body, "naturally in English")
	assert.Contains(t, body, `"recommend_questions"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), `User question: "what is \"XDR\"?"`))
}

func TestPromptMessages_DefaultProfile(t *testing.T) {
	body := Prompt{}.Messages("hi")[1].Content
	assert.Contains(t, body, defaultProfile)
	assert.Contains(t, body, "naturally in Korean")
}
