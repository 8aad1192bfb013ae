package realtime

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/yungbote/neurobridge-coach/internal/modules/coach/memory"
)

const icebreakerMemories = 3

// sessionConfig is the session.update payload: turn detection, transcription, instructions and
// tools.
func (c *connection) sessionConfig() map[string]any {
	p := c.e.policy
	input := map[string]any{
		"turn_detection": p.turnDetection(),
		"transcription":  map[string]any{"model": p.TranscriptionModel},
	}
	audio := map[string]any{"input": input}
	if p.Voice != "" {
		audio["output"] = map[string]any{"voice": p.Voice}
	}
	return map[string]any{
		"type":         "realtime",
		"instructions": c.instructions(),
		"audio":        audio,
		"tools":        c.e.toolDefinitions(),
		"tool_choice":  "auto",
	}
}

func (c *connection) instructions() string {
	var b strings.Builder
	b.WriteString("You are a patient, encouraging learning coach speaking with one learner by voice.\n")
	b.WriteString("Keep turns short and conversational. Ask one question at a time and let the learner do most of the thinking.\n")
	b.WriteString("Use search_memories before referring to anything from earlier sessions, save_memory for durable facts worth keeping, ")
	b.WriteString("get_learner_profile when you need their strengths or gaps, and record_feedback when they signal how the session feels.\n")
	b.WriteString("System messages marked [Coaching guidance] come from an observer of this conversation; follow them without mentioning them.\n\n")

	fmt.Fprintf(&b, "Course: %s", c.course.Title)
	if c.course.Level != "" {
		fmt.Fprintf(&b, " (%s)", c.course.Level)
	}
	fmt.Fprintf(&b, "\nChapter: %s\n", c.chapter.Title)
	if ex := excerpt(c.chapter.Content, chapterExcerptLen); ex != "" {
		b.WriteString("Chapter material:\n")
		b.WriteString(ex)
		b.WriteString("\n")
	}

	if snap, err := c.e.deps.Profiles.Snapshot(c.ctx, c.learnerID, c.course.ID); err != nil {
		c.log.Warn("profile snapshot unavailable", "error", err)
	} else {
		b.WriteString("\nLearner profile:\n")
		b.WriteString(snap.PromptText())
		b.WriteString("\n")
	}
	if summary, err := c.e.deps.Memories.Summary(c.ctx, c.learnerID, 10); err != nil {
		c.log.Warn("memory summary unavailable", "error", err)
	} else {
		b.WriteString("\nWhat you remember about this learner:\n")
		b.WriteString(summary)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// icebreakerInstructions asks for an opening that picks up where the learner left off. It never
// falls back to a generic greeting.
func (c *connection) icebreakerInstructions() string {
	var b strings.Builder
	b.WriteString("Open the conversation yourself in one or two sentences. Do not use a generic greeting such as \"Hi, how can I help?\". ")
	fmt.Fprintf(&b, "Connect to the chapter \"%s\" ", c.chapter.Title)

	prev, err := c.e.deps.Sessions.PreviousSession(c.ctx, c.learnerID)
	switch {
	case err != nil:
		c.log.Warn("previous session lookup failed", "error", err)
		b.WriteString("and invite the learner to say where they want to start. ")
	case prev == nil || prev.EndTime == nil:
		b.WriteString("and acknowledge that this is your first conversation together. ")
	default:
		fmt.Fprintf(&b, "and acknowledge that it has been %s since your last session. ", describeElapsed(c.e.now().Sub(*prev.EndTime)))
	}

	query := strings.TrimSpace(c.chapter.Title + " " + c.course.Title)
	res, err := c.e.deps.Memories.FindSimilar(c.ctx, c.learnerID, query, memory.SearchOptions{Limit: icebreakerMemories})
	if err != nil {
		c.log.Warn("icebreaker memory search failed", "error", err)
	}
	if texts := lo.Map(res.Matches, func(m memory.Match, _ int) string { return m.Memory.EnrichedText }); len(texts) > 0 {
		b.WriteString("Weave in one of these things you remember about them, naturally:\n- ")
		b.WriteString(strings.Join(texts, "\n- "))
		b.WriteString("\n")
	} else {
		b.WriteString("Ask one specific question about the chapter that reveals what they already know.\n")
	}
	return strings.TrimSpace(b.String())
}

// describeElapsed renders a duration the way a person would say it.
func describeElapsed(d time.Duration) string {
	switch {
	case d < time.Hour:
		return "less than an hour"
	case d < 2*time.Hour:
		return "about an hour"
	case d < 24*time.Hour:
		return fmt.Sprintf("about %d hours", int(d.Hours()))
	case d < 48*time.Hour:
		return "a day"
	case d < 14*24*time.Hour:
		return fmt.Sprintf("%d days", int(d.Hours()/24))
	case d < 60*24*time.Hour:
		return fmt.Sprintf("%d weeks", int(d.Hours()/(24*7)))
	default:
		return fmt.Sprintf("%d months", int(d.Hours()/(24*30)))
	}
}
