package survey

import (
	"fmt"
	"strings"
)

// SystemMessage enforces the strict-JSON contract for the structured report.
// The model has no server-side memory, so every round replays the full survey
// basis and follow-up history through BuildPrompt.
const SystemMessage = "You are a capstone project advisor. Respond with strict JSON only, no narration, no code fences. " +
	"The JSON schema is {\"title\": string, \"summary\": string, " +
	"\"themes\": [{\"name\": string, \"explanation\": string}], " +
	"\"projectIdeas\": [{\"name\": string, \"goal\": string, \"potentialImpact\": string, \"nextSteps\": string[]}], " +
	"\"references\": [{\"type\": string, \"source\": string, \"url\": string}], " +
	"\"risks\": string[]}. " +
	"Themes must reflect the respondent's selected answers. Project ideas must be concrete and actionable. " +
	"Risks are short plain sentences."

// BuildPrompt renders the user message deterministically from the survey
// basis plus the full accumulated follow-up sequence, in order.
func BuildPrompt(r Result, followUps []string) string {
	var sb strings.Builder
	sb.WriteString("Survey answers, in stage order:\n")
	for i, a := range r.ChosenQuestions {
		sb.WriteString(fmt.Sprintf("%d. ", i+1))
		if strings.TrimSpace(a.SurveyTitle) != "" {
			sb.WriteString("[")
			sb.WriteString(a.SurveyTitle)
			sb.WriteString("] ")
		}
		sb.WriteString(a.Question)
		if strings.TrimSpace(a.Description) != "" {
			sb.WriteString(" — ")
			sb.WriteString(a.Description)
		}
		sb.WriteString("\n")
	}
	if strings.TrimSpace(r.OpenEndedAnswer) != "" {
		sb.WriteString("\nOpen-ended answer:\n")
		sb.WriteString(strings.TrimSpace(r.OpenEndedAnswer))
		sb.WriteString("\n")
	}
	if r.NeedReferences {
		sb.WriteString("\nInclude real, verifiable references with full URLs in the references array.\n")
	} else {
		sb.WriteString("\nThe references array may be empty.\n")
	}
	if len(followUps) > 0 {
		sb.WriteString("\nFollow-up refinements from the respondent, apply all of them in order:\n")
		for i, fu := range followUps {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, fu))
		}
	}
	sb.WriteString("\nOutput only the JSON object.")
	return sb.String()
}
