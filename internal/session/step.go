package session

// Step is a position in the suggestion flow.
type Step int

const (
	StepInitial Step = iota
	StepCategorySelected
	StepName
	StepRate
	StepDescription
	StepURL
)

var stepNames = [...]string{
	StepInitial:          "initial",
	StepCategorySelected: "category-selected",
	StepName:             "name",
	StepRate:             "rate",
	StepDescription:      "description",
	StepURL:              "url",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "unknown"
	}
	return stepNames[s]
}

// LocationStack records the steps a user walked through. It always holds at
// least one entry and only grows until Reset.
type LocationStack struct {
	steps []Step
}

// NewLocationStack returns a stack positioned at StepInitial.
func NewLocationStack() LocationStack {
	return LocationStack{steps: []Step{StepInitial}}
}

// Push appends s as the new current step.
func (l *LocationStack) Push(s Step) {
	if len(l.steps) == 0 {
		l.steps = []Step{StepInitial}
	}
	l.steps = append(l.steps, s)
}

// Current returns the last pushed step.
func (l LocationStack) Current() Step {
	if len(l.steps) == 0 {
		return StepInitial
	}
	return l.steps[len(l.steps)-1]
}

// Reset drops the history back to a single StepInitial.
func (l *LocationStack) Reset() {
	l.steps = []Step{StepInitial}
}

// Len reports the number of recorded steps.
func (l LocationStack) Len() int {
	if len(l.steps) == 0 {
		return 1
	}
	return len(l.steps)
}

// Steps returns a copy of the history, oldest first.
func (l LocationStack) Steps() []Step {
	if len(l.steps) == 0 {
		return []Step{StepInitial}
	}
	return append([]Step(nil), l.steps...)
}
