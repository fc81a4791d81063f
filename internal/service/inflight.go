package service

import "sync"

// Guard tracks users with a request in flight so slow work (speech
// recognition) never runs twice for the same user at once.
type Guard struct {
	mu     sync.Mutex
	active map[int64]struct{}
}

func NewGuard() *Guard {
	return &Guard{active: make(map[int64]struct{})}
}

// TryAcquire reports whether the user slot was free and, if so, takes it.
func (g *Guard) TryAcquire(telegramID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[telegramID]; busy {
		return false
	}
	g.active[telegramID] = struct{}{}
	return true
}

func (g *Guard) Release(telegramID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, telegramID)
}
