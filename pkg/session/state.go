package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// State — состояние сессии клиента.
type State int

const (
	Anonymous State = iota
	Authenticated
	PendingMFA
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	case PendingMFA:
		return "pending_mfa"
	default:
		return "unknown"
	}
}

// Session — явное состояние сессии: access-токен, его срок, ожидающий
// тикет MFA и таймер проактивного обновления. Refresh-токен здесь не хранится:
// он живёт только в HttpOnly-куке.
//
// Два счётчика поколений:
//   - epoch растёт при любом переходе (вход, MFA, обновление, сброс);
//     результат обновления применяется, только если epoch не сменился;
//   - resets растёт только при сбросе (Logout/Close); вход и MFA
//     проигрывают лишь сбросу, но не параллельному обновлению.
type Session struct {
	mu        sync.Mutex
	state     State
	access    string
	expiresAt time.Time
	ticket    *MFATicket
	timer     clockwork.Timer
	epoch     uint64
	resets    uint64
}

// Snapshot — копия состояния для чтения.
type Snapshot struct {
	State       State
	AccessToken string
	ExpiresAt   time.Time
	Epoch       uint64
}

// mark — поколение сессии на момент начала операции.
type mark struct {
	epoch  uint64
	resets uint64
}

func (s *Session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{State: s.state, AccessToken: s.access, ExpiresAt: s.expiresAt, Epoch: s.epoch}
}

func (s *Session) begin() mark {
	s.mu.Lock()
	defer s.mu.Unlock()

	return mark{epoch: s.epoch, resets: s.resets}
}

// currentLocked: strict — с момента m не было ни одного перехода,
// иначе — не было сброса.
func (s *Session) currentLocked(m mark, strict bool) bool {
	if strict {
		return s.epoch == m.epoch
	}
	return s.resets == m.resets
}

// authenticate переводит сессию в Authenticated, если поколение m ещё актуально.
// Предыдущий таймер останавливается; arm (если не nil) взводит новый.
func (s *Session) authenticate(m mark, strict bool, access string, exp time.Time, arm func() clockwork.Timer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(m, strict) {
		return false
	}

	s.stopTimerLocked()
	s.state = Authenticated
	s.access = access
	s.expiresAt = exp
	s.ticket = nil
	s.epoch++
	if arm != nil {
		s.timer = arm()
	}

	return true
}

// pendingMFA переводит сессию в PendingMFA, если с начала входа не было сброса.
func (s *Session) pendingMFA(m mark, ticket *MFATicket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(m, false) {
		return false
	}

	s.stopTimerLocked()
	s.state = PendingMFA
	s.access = ""
	s.expiresAt = time.Time{}
	s.ticket = ticket
	s.epoch++

	return true
}

func (s *Session) pendingTicket() *MFATicket {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != PendingMFA {
		return nil
	}
	return s.ticket
}

// reset возвращает сессию в Anonymous и отменяет таймер.
func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
}

// resetIf сбрасывает сессию, только если с момента m не было переходов:
// неудачное обновление не трогает более новую сессию.
func (s *Session) resetIf(m mark) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentLocked(m, true) {
		s.resetLocked()
	}
}

func (s *Session) resetLocked() {
	s.stopTimerLocked()
	s.state = Anonymous
	s.access = ""
	s.expiresAt = time.Time{}
	s.ticket = nil
	s.epoch++
	s.resets++
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
