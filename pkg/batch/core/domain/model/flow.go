package model

import (
	"fmt"
	"strings"
)

// Wildcard matches any exit status.
const Wildcard = "*"

// Transition routes a step's exit status to the next action. Exactly one of
// To, End, Fail and Stop is meaningful; To wins when set.
type Transition struct {
	From string `yaml:"from"`
	On   string `yaml:"on"`
	To   string `yaml:"to,omitempty"`
	End  bool   `yaml:"end,omitempty"`
	Fail bool   `yaml:"fail,omitempty"`
	Stop bool   `yaml:"stop,omitempty"`
}

// String renders the transition for logs.
func (t Transition) String() string {
	switch {
	case t.To != "":
		return fmt.Sprintf("%s[%s] -> %s", t.From, t.On, t.To)
	case t.Stop:
		return fmt.Sprintf("%s[%s] -> STOP", t.From, t.On)
	case t.Fail:
		return fmt.Sprintf("%s[%s] -> FAIL", t.From, t.On)
	}
	return fmt.Sprintf("%s[%s] -> END", t.From, t.On)
}

// FlowDefinition is the transition graph of a job.
type FlowDefinition struct {
	StartStep   string       `yaml:"start"`
	Transitions []Transition `yaml:"transitions"`
}

// NewFlowDefinition creates a flow that starts at startStep.
func NewFlowDefinition(startStep string) *FlowDefinition {
	return &FlowDefinition{StartStep: startStep}
}

// AddTransitionRule appends a transition.
func (fd *FlowDefinition) AddTransitionRule(from, on, to string, end, fail, stop bool) {
	fd.Transitions = append(fd.Transitions, Transition{From: from, On: on, To: to, End: end, Fail: fail, Stop: stop})
}

// Next routes from[on] to the step named to.
func (fd *FlowDefinition) Next(from, on, to string) *FlowDefinition {
	fd.AddTransitionRule(from, on, to, false, false, false)
	return fd
}

// EndOn ends the job when from exits with on.
func (fd *FlowDefinition) EndOn(from, on string) *FlowDefinition {
	fd.AddTransitionRule(from, on, "", true, false, false)
	return fd
}

// FailOn fails the job when from exits with on.
func (fd *FlowDefinition) FailOn(from, on string) *FlowDefinition {
	fd.AddTransitionRule(from, on, "", false, true, false)
	return fd
}

// StopOn stops the job when from exits with on.
func (fd *FlowDefinition) StopOn(from, on string) *FlowDefinition {
	fd.AddTransitionRule(from, on, "", false, false, true)
	return fd
}

// Resolve finds the transition for step from ending with exit. An exact
// match beats a pattern, a pattern with more literal characters beats one
// with fewer, and earlier declarations win ties.
func (fd *FlowDefinition) Resolve(from string, exit ExitStatus) (Transition, bool) {
	var best Transition
	bestScore := -1
	status := string(exit)
	for _, t := range fd.Transitions {
		if t.From != from {
			continue
		}
		if t.On == status {
			return t, true
		}
		if !strings.ContainsAny(t.On, "*?") || !matchPattern(t.On, status) {
			continue
		}
		if score := literalLength(t.On); score > bestScore {
			best, bestScore = t, score
		}
	}
	return best, bestScore >= 0
}

// Validate checks that start and every transition target are known steps.
func (fd *FlowDefinition) Validate(stepNames map[string]bool) error {
	if fd.StartStep == "" {
		return fmt.Errorf("flow has no start step")
	}
	if !stepNames[fd.StartStep] {
		return fmt.Errorf("start step '%s' is not defined", fd.StartStep)
	}
	for _, t := range fd.Transitions {
		if !stepNames[t.From] {
			return fmt.Errorf("transition %s: source step '%s' is not defined", t, t.From)
		}
		if t.To != "" && !stepNames[t.To] {
			return fmt.Errorf("transition %s: target step '%s' is not defined", t, t.To)
		}
		if t.To == "" && !t.End && !t.Fail && !t.Stop {
			return fmt.Errorf("transition %s has no action", t)
		}
	}
	return nil
}

// matchPattern matches s against a pattern where '*' is any run of
// characters and '?' a single character.
func matchPattern(pattern, s string) bool {
	if pattern == "" {
		return s == ""
	}
	switch pattern[0] {
	case '*':
		for i := 0; i <= len(s); i++ {
			if matchPattern(pattern[1:], s[i:]) {
				return true
			}
		}
		return false
	case '?':
		return s != "" && matchPattern(pattern[1:], s[1:])
	}
	return s != "" && s[0] == pattern[0] && matchPattern(pattern[1:], s[1:])
}

func literalLength(pattern string) int {
	return len(pattern) - strings.Count(pattern, "*") - strings.Count(pattern, "?")
}
