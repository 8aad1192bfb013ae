package promptstyle

import "strings"

const marker = "NEUROBRIDGE_COACH_PROMPT_STYLE_V1"

// ApplySystem prepends a short guidance block to coach system prompts. mode is "json" or "text".
// Prompts that already carry the marker are returned unchanged.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" {
		return base
	}
	if strings.Contains(base, marker) {
		return base
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou support a learning coach for the Neurobridge platform.")
	b.WriteString("\nFollow the system and user instructions precisely.")
	b.WriteString("\nGround every statement in the supplied transcript, profile and course context.")
	b.WriteString("\nNever invent learner facts or quotes.")
	if strings.EqualFold(strings.TrimSpace(mode), "json") {
		b.WriteString("\nReturn a single JSON object that conforms to the schema and contains no extra keys.")
	} else {
		b.WriteString("\nBe concise.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return b.String()
}
