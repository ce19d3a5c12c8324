package watch

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// State remembers the last announced value of every registered metric.
// It is owned by a single session loop and is not safe for concurrent use.
type State struct {
	order    []MetricID
	policies map[MetricID]Policy
	values   map[MetricID]decimal.NullDecimal
}

func NewState() *State {
	return &State{
		policies: make(map[MetricID]Policy),
		values:   make(map[MetricID]decimal.NullDecimal),
	}
}

func (s *State) Register(id MetricID, p Policy) error {
	if _, ok := s.policies[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMetric, id)
	}
	s.order = append(s.order, id)
	s.policies[id] = p
	s.values[id] = decimal.NullDecimal{}
	return nil
}

// Observe applies the metric's policy to candidate. The baseline moves only
// when the change is announced, suppressed candidates are forgotten.
func (s *State) Observe(id MetricID, candidate decimal.Decimal) (*ChangeEvent, error) {
	p, ok := s.policies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, id)
	}
	previous := s.values[id]
	if Decide(previous, candidate, p) == Suppress {
		return nil, nil
	}
	s.values[id] = decimal.NewNullDecimal(candidate)
	return &ChangeEvent{
		ID:       id,
		Previous: previous,
		Current:  candidate,
	}, nil
}

func (s *State) Policy(id MetricID) (Policy, bool) {
	p, ok := s.policies[id]
	return p, ok
}

func (s *State) Snapshot() Snapshot {
	return lo.Map(s.order, func(id MetricID, _ int) Reading {
		return Reading{ID: id, Value: s.values[id]}
	})
}
