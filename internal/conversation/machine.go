// Package conversation tracks the multi-step repair request dialogue
// (name, then phone, then problem) for each chat.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrNoSession is returned by Advance when the chat has no dialogue in progress.
var ErrNoSession = errors.New("no active session")

type Step int

const (
	StepIdle Step = iota
	StepAwaitingName
	StepAwaitingPhone
	StepAwaitingProblem
)

func (s Step) String() string {
	switch s {
	case StepAwaitingName:
		return "awaiting_name"
	case StepAwaitingPhone:
		return "awaiting_phone"
	case StepAwaitingProblem:
		return "awaiting_problem"
	default:
		return "idle"
	}
}

// Draft is the partially collected request.
type Draft struct {
	Name    string
	Phone   string
	Problem string
}

// Session is the state of one chat's dialogue.
type Session struct {
	ChatID    int64
	Step      Step
	Draft     Draft
	UpdatedAt time.Time
}

// Prompts are the texts shown at each step.
type Prompts struct {
	Name    string
	Phone   string
	Problem string
	Done    string
}

var DefaultPrompts = Prompts{
	Name:    "📝 Отлично! Давайте оформим заявку. Как вас зовут?",
	Phone:   "📞 Укажите ваш номер телефона:",
	Problem: "🔧 Опишите кратко проблему с компьютером:",
	Done:    "✅ Ваша заявка сохранена! Наш мастер скоро свяжется с вами 💙",
}

// Reply is what the bot should answer after a step. Done is set once the
// dialogue has finished and the draft was handed to the finalizer.
type Reply struct {
	Text string
	Done bool
}

// Finalizer persists a completed draft.
type Finalizer func(ctx context.Context, chatID int64, d Draft) error

type Option func(*Machine)

// WithTTL makes sessions idle for longer than ttl count as absent.
// Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(m *Machine) { m.ttl = ttl }
}

func WithPrompts(p Prompts) Option {
	return func(m *Machine) { m.prompts = p }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// Machine holds one session per chat. Sessions of different chats are
// independent; all access goes through one mutex.
type Machine struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	finalize Finalizer
	prompts  Prompts
	ttl      time.Duration
	now      func() time.Time
}

func New(finalize Finalizer, opts ...Option) *Machine {
	m := &Machine{
		sessions: make(map[int64]*Session),
		finalize: finalize,
		prompts:  DefaultPrompts,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins a new dialogue for chatID, replacing any previous one, and
// returns the first prompt.
func (m *Machine) Start(chatID int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[chatID] = &Session{
		ChatID:    chatID,
		Step:      StepAwaitingName,
		UpdatedAt: m.now(),
	}
	return m.prompts.Name
}

// Active reports whether chatID has a dialogue in progress.
func (m *Machine) Active(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookup(chatID) != nil
}

// Cancel drops the dialogue for chatID. It reports whether one existed.
func (m *Machine) Cancel(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	existed := m.lookup(chatID) != nil
	delete(m.sessions, chatID)
	return existed
}

// Session returns a copy of the current session for chatID.
func (m *Machine) Session(chatID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.lookup(chatID)
	if s == nil {
		return Session{}, false
	}
	return *s, true
}

// Advance feeds one message into the dialogue. Empty text re-prompts the
// current step. On the last step the session is removed before the
// finalizer runs, so a failed save does not leave the chat stuck; the
// finalizer error is returned as is.
func (m *Machine) Advance(ctx context.Context, chatID int64, text string) (Reply, error) {
	text = strings.TrimSpace(text)

	m.mu.Lock()
	s := m.lookup(chatID)
	if s == nil {
		m.mu.Unlock()
		return Reply{}, ErrNoSession
	}
	s.UpdatedAt = m.now()

	if text == "" {
		reply := Reply{Text: m.promptFor(s.Step)}
		m.mu.Unlock()
		return reply, nil
	}

	switch s.Step {
	case StepAwaitingName:
		s.Draft.Name = text
		s.Step = StepAwaitingPhone
		reply := Reply{Text: m.prompts.Phone}
		m.mu.Unlock()
		return reply, nil
	case StepAwaitingPhone:
		s.Draft.Phone = text
		s.Step = StepAwaitingProblem
		reply := Reply{Text: m.prompts.Problem}
		m.mu.Unlock()
		return reply, nil
	}

	draft := s.Draft
	draft.Problem = text
	delete(m.sessions, chatID)
	m.mu.Unlock()

	if m.finalize != nil {
		if err := m.finalize(ctx, chatID, draft); err != nil {
			return Reply{Done: true}, err
		}
	}
	return Reply{Text: m.prompts.Done, Done: true}, nil
}

// Len is the number of live sessions.
func (m *Machine) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id := range m.sessions {
		if m.lookup(id) != nil {
			n++
		}
	}
	return n
}

// lookup must be called with mu held. Expired sessions are evicted.
func (m *Machine) lookup(chatID int64) *Session {
	s, ok := m.sessions[chatID]
	if !ok {
		return nil
	}
	if m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl {
		delete(m.sessions, chatID)
		return nil
	}
	return s
}

func (m *Machine) promptFor(step Step) string {
	switch step {
	case StepAwaitingPhone:
		return m.prompts.Phone
	case StepAwaitingProblem:
		return m.prompts.Problem
	default:
		return m.prompts.Name
	}
}
