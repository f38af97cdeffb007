package coach

import (
	"github.com/park285/chess-coach/internal/rules"
)

// View returns the current read projection.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Status returns the single status label for the board.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// FEN is the rules engine's serialized position.
func (s *Session) FEN() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.FEN()
}

func (s *Session) statusLocked() string {
	if s.match == nil {
		return StatusLabel(s.deps.Catalog, nil)
	}
	return StatusLabel(s.deps.Catalog, s.engine)
}

func (s *Session) viewLocked() View {
	history := s.engine.History()
	v := View{
		SessionID:     s.id,
		Phase:         s.phase,
		FEN:           s.engine.FEN(),
		Turn:          s.engine.SideToMove(),
		Status:        s.statusLocked(),
		Moves:         rules.SANList(history),
		Conversation:  append([]Turn{}, s.turns...),
		AdviceLoading: s.adviceLoading,
		ChatLoading:   s.chatLoading,
		ChatEnabled:   s.thread != nil && !s.chatLoading && !s.adviceLoading,
		Terminal:      s.phase == PhaseTerminal,
	}
	if n := len(history); n > 0 {
		v.LastMove = history[n-1].UCI
		v.ECO, v.Opening = s.engine.Opening()
	}
	if s.match != nil {
		m := *s.match
		v.Match = &m
		v.PGN = s.pgnLocked()
		botTurn := s.botToMoveLocked()
		v.CanMove = s.phase == PhaseAwaitingHumanMove && !botTurn
		v.CanRetryBot = s.phase == PhaseAwaitingHumanMove && botTurn && !s.adviceLoading
	}
	if s.advice != nil {
		a := *s.advice
		v.Advice = &a
	}
	if v.Terminal {
		v.Result, _ = s.engine.Outcome()
	}
	return v
}

// Subscribe streams views after every change, starting with the current one.
// Slow consumers lose intermediate views, never the latest.
func (s *Session) Subscribe() (<-chan View, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan View, 8)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.viewLocked()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (s *Session) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	v := s.viewLocked()
	for _, ch := range s.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// drop the oldest queued view to make room
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}
