package app

import (
	"fmt"
	"strings"

	"portfolio-api/internal/ai"
)

const defaultProfile = `Name: Juhyeok Woo
Role: Cloud security engineer
Current employer: Cinamon
Skills: AWS, Linux, Palo Alto XDR, Python, Docker, Kubernetes
Certifications: Linux Master level 2, Network Administrator level 2, Azure AZ-900, Engineer Information Processing (written exam passed)
Training: Cloud engineer program with KT Cloud and NHN Cloud
Internship: Virtualization technical support at Somansa
Languages: TOEIC 940 (2024-10)
Experience: SK Innovation XDR technical support, Musinsa project`

const systemPersona = "You are an assistant that introduces me to visitors based on my resume."

// Prompt turns a visitor question into the messages sent to the completion service.
type Prompt struct {
	Profile  string
	Language string
}

func (p Prompt) Messages(question string) []ai.ChatMessage {
	return []ai.ChatMessage{
		{Role: "system", Content: systemPersona},
		{Role: "user", Content: p.render(question)},
	}
}

func (p Prompt) render(question string) string {
	profile := strings.TrimSpace(p.Profile)
	if profile == "" {
		profile = defaultProfile
	}
	language := strings.TrimSpace(p.Language)
	if language == "" {
		language = "Korean"
	}

	var b strings.Builder
	b.WriteString("Below is the user's resume:\n")
	b.WriteString(profile)
	b.WriteString("\n\n")
	b.WriteString("Based on the resume above, answer the following question and suggest 3 related follow-up questions.\n\n")
	fmt.Fprintf(&b, "1. Write the answer to the question naturally in %s\n", language)
	b.WriteString("2. Write the 3 recommended questions as a JSON array\n")
	b.WriteString("3. Your entire response must be exactly this JSON object:\n\n")
	b.WriteString("{\n    \"message\": \"the assistant's answer\",\n    \"recommend_questions\": [\"question 1\", \"question 2\", \"question 3\"]\n}\n\n")
	fmt.Fprintf(&b, "User question: %q\n", question)
	return b.String()
}
