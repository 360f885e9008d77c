package app

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Scoreboard fans leaderboard snapshots out to live subscribers whenever scores change.
type Scoreboard struct {
	admin  *AdminView
	logger *zap.Logger

	mu          sync.Mutex
	subscribers map[chan Leaderboard]struct{}
}

func NewScoreboard(admin *AdminView, logger *zap.Logger) *Scoreboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scoreboard{
		admin:       admin,
		logger:      logger,
		subscribers: make(map[chan Leaderboard]struct{}),
	}
}

// ScoresChanged recomputes the leaderboard and pushes it to every subscriber.
func (s *Scoreboard) ScoresChanged(ctx context.Context) {
	if s.subscriberCount() == 0 {
		return
	}
	lb, err := s.admin.Leaderboard(ctx)
	if err != nil {
		s.logger.Error("recompute leaderboard", zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(lb)
}

// Subscribe returns a channel that receives leaderboard updates, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Scoreboard) Subscribe(ctx context.Context) (<-chan Leaderboard, func(), error) {
	initial, err := s.admin.Leaderboard(ctx)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan Leaderboard, 8)
	ch <- initial

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *Scoreboard) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *Scoreboard) broadcastLocked(lb Leaderboard) {
	for ch := range s.subscribers {
		select {
		case ch <- lb:
		default:
			// slow reader: drop its oldest snapshot so the newest always lands
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
