package model

import (
	"sort"
	"time"
)

// SurveyMetadata describes a survey for display
type SurveyMetadata struct {
	Title        string `json:"title" bson:"title" yaml:"title" validate:"required"`
	Description  string `json:"description,omitempty" bson:"description,omitempty" yaml:"description"`
	Instructions string `json:"instructions,omitempty" bson:"instructions,omitempty" yaml:"instructions"`
	Version      string `json:"version,omitempty" bson:"version,omitempty" yaml:"version"`
	Created      string `json:"created,omitempty" bson:"created,omitempty" yaml:"created"`
	Language     string `json:"language,omitempty" bson:"language,omitempty" yaml:"language"`
}

// Category groups questions into one page
type Category struct {
	ID   int    `json:"id" bson:"id" yaml:"id"`                                          // Referenced by Question.Category
	Rank int    `json:"cat_number" bson:"cat_number" yaml:"cat_number" validate:"gte=0"` // Page order, ascending
	Name string `json:"name" bson:"name" yaml:"name"`
}

// KeyChoice labels one point on a rating scale
type KeyChoice struct {
	Key         int    `json:"key" bson:"key" yaml:"key"`
	Description string `json:"description" bson:"description" yaml:"description"`
}

// Survey is an immutable survey definition as served to respondents
type Survey struct {
	ID         string         `json:"id" bson:"_id" yaml:"id" validate:"required"`
	HostID     string         `json:"hostId,omitempty" bson:"hostId,omitempty" yaml:"-"`
	Metadata   SurveyMetadata `json:"metadata" bson:"metadata" yaml:"metadata"`
	Questions  []Question     `json:"questions" bson:"questions" yaml:"questions" validate:"required,min=1,dive"`
	Categories []Category     `json:"question_categories" bson:"question_categories" yaml:"question_categories" validate:"required,min=1,dive"`
	KeyChoices []KeyChoice    `json:"key_choice,omitempty" bson:"key_choice,omitempty" yaml:"key_choice"`
	Rules      []Rule         `json:"skip_logic,omitempty" bson:"skip_logic,omitempty" yaml:"skip_logic" validate:"dive"`
	CreatedAt  time.Time      `json:"createdAt" bson:"createdAt" yaml:"-"`
	UpdatedAt  time.Time      `json:"updatedAt" bson:"updatedAt" yaml:"-"`
}

// Normalize fills derived fields after a definition is decoded.
// Category ids default to their rank, option ids default to their position.
func (s *Survey) Normalize() {
	for i := range s.Categories {
		if s.Categories[i].ID == 0 {
			s.Categories[i].ID = s.Categories[i].Rank
		}
	}
	for i := range s.Questions {
		s.Questions[i].Options = normalizeOptions(s.Questions[i].Options)
	}
	sort.SliceStable(s.Categories, func(i, j int) bool {
		return s.Categories[i].Rank < s.Categories[j].Rank
	})
}

// Question returns the question with the given sequence number
func (s *Survey) Question(sn int) (*Question, bool) {
	for i := range s.Questions {
		if s.Questions[i].SequenceNum == sn {
			return &s.Questions[i], true
		}
	}
	return nil, false
}

// SurveySummary is the list view of a stored definition
type SurveySummary struct {
	ID            string    `json:"id" bson:"_id"`
	Title         string    `json:"title" bson:"title"`
	QuestionCount int       `json:"questionCount" bson:"questionCount"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}
