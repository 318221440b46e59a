// Package wizard holds the influencer acceptance flow:
// NDA -> Details -> Submission{accepted} -> Thanks.
package wizard

import "fmt"

// Step is one of StepNDA, StepDetails, StepSubmission or StepThanks.
// The set is closed; the branch decision only exists on the steps that carry it.
type Step interface {
	Number() int
	isStep()
}

type StepNDA struct{}

type StepDetails struct{}

// StepSubmission renders the submission form when Accepted, else the opt-in form.
type StepSubmission struct {
	Accepted bool
}

// StepThanks is terminal except for BackToStart.
type StepThanks struct {
	Accepted bool
}

func (StepNDA) Number() int        { return 1 }
func (StepDetails) Number() int    { return 2 }
func (StepSubmission) Number() int { return 3 }
func (StepThanks) Number() int     { return 4 }

func (StepNDA) isStep()        {}
func (StepDetails) isStep()    {}
func (StepSubmission) isStep() {}
func (StepThanks) isStep()     {}

// Accepted returns the branch decision, nil while it is still unknown.
func Accepted(s Step) *bool {
	switch st := s.(type) {
	case StepSubmission:
		return &st.Accepted
	case StepThanks:
		return &st.Accepted
	}
	return nil
}

func StepName(s Step) string {
	switch s.(type) {
	case StepNDA:
		return "nda"
	case StepDetails:
		return "details"
	case StepSubmission:
		return "submission"
	case StepThanks:
		return "thanks"
	}
	return "unknown"
}

type stepWire struct {
	Number   int    `json:"number"`
	Name     string `json:"name"`
	Accepted *bool  `json:"accepted"`
}

func encodeStep(s Step) stepWire {
	return stepWire{Number: s.Number(), Name: StepName(s), Accepted: Accepted(s)}
}

// decodeStep rebuilds a Step, rejecting combinations no transition can produce.
func decodeStep(w stepWire) (Step, error) {
	switch w.Number {
	case 1, 2:
		if w.Accepted != nil {
			return nil, fmt.Errorf("step %d cannot carry a branch decision", w.Number)
		}
		if w.Number == 1 {
			return StepNDA{}, nil
		}
		return StepDetails{}, nil
	case 3, 4:
		if w.Accepted == nil {
			return nil, fmt.Errorf("step %d requires a branch decision", w.Number)
		}
		if w.Number == 3 {
			return StepSubmission{Accepted: *w.Accepted}, nil
		}
		return StepThanks{Accepted: *w.Accepted}, nil
	}
	return nil, fmt.Errorf("unknown step %d", w.Number)
}

