package prompts

// Input is a superset of all fields any coach prompt might need.
// Missing fields render empty strings (templates use missingkey=zero).
type Input struct {
	// Course grounding
	CourseTitle    string
	CourseLevel    string
	ChapterTitle   string
	ChapterExcerpt string

	// Memory
	RawText       string
	SourceMessage string
	Query         string
	MemorySummary string

	// Conversation
	RecentTurns     string
	CurrentExchange string
	Message         string
	Window          string
	Topic           string
	Taxonomy        string

	// Post-session
	Transcript         string
	LearnerProfileJSON string
	CourseProfileJSON  string
	DurationMinutes    int
}
