package compare

import (
	"errors"
	"fmt"
)

const MaxSelection = 4

var ErrSelectionFull = fmt.Errorf("selection is limited to %d items", MaxSelection)

var ErrEmptyID = errors.New("item id required")

// Selection is the ordered, bounded set of item ids a user is comparing.
// It lives only in view state and is never persisted.
type Selection struct {
	ids []string
}

// NewSelection adds ids in order and fails on the first one that does not fit.
func NewSelection(ids ...string) (*Selection, error) {
	s := &Selection{}
	for _, id := range ids {
		if err := s.Add(id); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends id. Adding an id already present is a no-op; adding past the
// limit is rejected and leaves the selection unchanged.
func (s *Selection) Add(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if s.Contains(id) {
		return nil
	}
	if len(s.ids) >= MaxSelection {
		return ErrSelectionFull
	}
	s.ids = append(s.ids, id)
	return nil
}

func (s *Selection) Remove(id string) {
	for i, cur := range s.ids {
		if cur == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return
		}
	}
}

// Toggle removes id when selected and adds it otherwise.
func (s *Selection) Toggle(id string) error {
	if s.Contains(id) {
		s.Remove(id)
		return nil
	}
	return s.Add(id)
}

func (s *Selection) Contains(id string) bool {
	for _, cur := range s.ids {
		if cur == id {
			return true
		}
	}
	return false
}

func (s *Selection) Len() int { return len(s.ids) }

func (s *Selection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}
