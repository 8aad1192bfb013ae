package extraction

import "strings"

// Insight is either a LearningInsight or a PersonalDataInsight.
type Insight interface {
	Text() string
	Importance() int
	Tags() []string
	insight()
}

// LearningInsight goes to the session insight log and to an academic memory.
type LearningInsight struct {
	Type       string
	text       string
	importance int
	tags       []string
}

// PersonalDataInsight is stored only as a personal memory.
type PersonalDataInsight struct {
	DataType   string
	text       string
	importance int
	tags       []string
}

func NewLearningInsight(insightType, text string, importance int, tags []string) LearningInsight {
	return LearningInsight{Type: insightType, text: strings.TrimSpace(text), importance: importance, tags: tags}
}

func NewPersonalDataInsight(dataType, text string, importance int, tags []string) PersonalDataInsight {
	return PersonalDataInsight{DataType: dataType, text: strings.TrimSpace(text), importance: importance, tags: tags}
}

func (i LearningInsight) Text() string    { return i.text }
func (i LearningInsight) Importance() int { return i.importance }
func (i LearningInsight) Tags() []string  { return i.tags }
func (LearningInsight) insight()          {}

func (i PersonalDataInsight) Text() string    { return i.text }
func (i PersonalDataInsight) Importance() int { return i.importance }
func (i PersonalDataInsight) Tags() []string  { return i.tags }
func (PersonalDataInsight) insight()          {}
