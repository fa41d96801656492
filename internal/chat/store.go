package chat

import "sync"

type session struct {
	turns   []Turn
	mode    Mode
	pending bool
	// asked counts user turns for the question cap. It is kept separately
	// because the turn list trims and the cap must not reset with it.
	asked int
}

// Store keeps the ordered turn list and mode for each session. It is the
// sole source of truth for counters; everything hands out copies.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	maxTurns int
}

func NewStore(maxTurns int) *Store {
	return &Store{
		sessions: make(map[string]*session),
		maxTurns: maxTurns,
	}
}

func (s *Store) get(sessionID string) *session {
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{mode: ModeNormal}
		s.sessions[sessionID] = sess
	}
	return sess
}

func (s *Store) Append(sessionID string, t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(sessionID)
	sess.turns = append(sess.turns, t)
	if t.Role == RoleUser {
		sess.asked++
	}
	s.trimLocked(sess)
}

// Delete forgets the session entirely, question count included.
func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *Store) trimLocked(sess *session) {
	if s.maxTurns <= 0 {
		return
	}
	if len(sess.turns) > s.maxTurns {
		sess.turns = sess.turns[len(sess.turns)-s.maxTurns:]
	}
}

// Turns returns a copy of the session's turn list.
func (s *Store) Turns(sessionID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]Turn, len(sess.turns))
	copy(out, sess.turns)
	return out
}

func (s *Store) CountBy(sessionID string, role Role) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0
	}
	n := 0
	for _, t := range sess.turns {
		if t.Role == role {
			n++
		}
	}
	return n
}

// Questions reports how many user turns the session has ever accepted.
// Unlike CountBy, the number survives trimming.
func (s *Store) Questions(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0
	}
	return sess.asked
}

func (s *Store) Mode(sessionID string) Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return ModeNormal
	}
	return sess.mode
}

func (s *Store) SetMode(sessionID string, m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(sessionID).mode = m
}

func (s *Store) Pending(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	return sess.pending
}

// BeginExchange claims the session for one question/answer round trip: it
// appends the user turn and an empty pending assistant turn under a single
// lock. It reports false, appending nothing, if a reply is already in flight.
// Two racing submissions can therefore never leave a user turn without a
// matching reply slot.
func (s *Store) BeginExchange(sessionID, userText string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(sessionID)
	if sess.pending {
		return false
	}
	sess.pending = true
	sess.turns = append(sess.turns,
		Turn{Role: RoleUser, Text: userText},
		Turn{Role: RoleAssistant, Pending: true})
	sess.asked++
	s.trimLocked(sess)
	return true
}

// FillPending writes the reply text into the in-flight assistant turn and
// clears the pending flag. The failed-exchange apology goes through the same
// path, so the turn list stays well-formed on gateway errors.
func (s *Store) FillPending(sessionID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	for i := len(sess.turns) - 1; i >= 0; i-- {
		if sess.turns[i].Pending {
			sess.turns[i].Text = text
			sess.turns[i].Pending = false
			break
		}
	}
	sess.pending = false
}
