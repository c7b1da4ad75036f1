package history

import (
	"sync"

	"github.com/samber/do"
)

const maxTurns = 10

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role    string
	Content string
}

// Service keeps the bounded negotiation memory per contact: the last
// maxTurns turns, oldest evicted first. Histories live for the process
// lifetime.
type Service struct {
	mu    sync.RWMutex
	turns map[string][]Turn
}

func New(_ *do.Injector) (*Service, error) {
	return NewService(), nil
}

func NewService() *Service {
	return &Service{
		turns: make(map[string][]Turn),
	}
}

func (s *Service) Append(contactID string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	window := s.turns[contactID]

	if len(window) >= maxTurns {
		window = append(window[1:], turn)
	} else {
		window = append(window, turn)
	}

	s.turns[contactID] = window
}

// Get returns a copy of the contact's current window, oldest first. An
// unseen contact yields an empty slice.
func (s *Service) Get(contactID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Turn(nil), s.turns[contactID]...)
}

// FirstUserUtterance returns the earliest retained user turn. It stands in
// for the contact's name when nothing better is known.
func (s *Service) FirstUserUtterance(contactID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, turn := range s.turns[contactID] {
		if turn.Role == RoleUser {
			return turn.Content, true
		}
	}

	return "", false
}
