// Package archive models the content of an uploaded quiz archive and
// decodes it from its XML representation.
package archive

import "time"

// Archive is a decoded archive document.
type Archive struct {
	Creation time.Time
	Quizzes  []Quiz
}

// Quiz is one taggable content item.
type Quiz struct {
	Name         string
	Creation     time.Time
	Modification *time.Time
	Frames       []Frame
	Dimensions   []Dimension
}

// Dimension tags a quiz with a named topic and an intensity in [0, 1].
type Dimension struct {
	Name      string
	Intensity float64
}

// Frame is one renderable piece of a quiz.
type Frame interface {
	Kind() string
}

type Text struct {
	Content string
}

type Image struct {
	Src    string
	Alt    string
	Width  int
	Height int
}

type Options struct {
	Name  string
	Items []Option
}

type Option struct {
	Priority int
	Key      bool
	Content  Frame
}

// Unknown keeps a frame element this decoder does not understand.
type Unknown struct {
	Element string
}

func (Text) Kind() string    { return "text" }
func (Image) Kind() string   { return "image" }
func (Options) Kind() string { return "options" }
func (u Unknown) Kind() string {
	return u.Element
}

// UpdateTime is the modification time, or the creation time when the quiz
// was never modified.
func (q Quiz) UpdateTime() time.Time {
	if q.Modification != nil {
		return *q.Modification
	}
	return q.Creation
}

// UpdateTime is the latest quiz update time. ok is false for an archive
// without quizzes.
func (a *Archive) UpdateTime() (t time.Time, ok bool) {
	for i, q := range a.Quizzes {
		if u := q.UpdateTime(); i == 0 || u.After(t) {
			t = u
		}
	}
	return t, len(a.Quizzes) > 0
}

// DimensionQuizCounts tallies, per dimension name, how many quizzes carry it.
func (a *Archive) DimensionQuizCounts() map[string]int {
	counts := make(map[string]int)
	for _, q := range a.Quizzes {
		seen := make(map[string]struct{}, len(q.Dimensions))
		for _, d := range q.Dimensions {
			if _, dup := seen[d.Name]; dup {
				continue
			}
			seen[d.Name] = struct{}{}
			counts[d.Name]++
		}
	}
	return counts
}
