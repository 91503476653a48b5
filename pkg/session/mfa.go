package session

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrMFATicketConsumed — тикет MFA уже предъявлен.
	ErrMFATicketConsumed = errors.New("mfa ticket already consumed")
	// ErrNoPendingMFA — второй фактор не ожидается (нет тикета).
	ErrNoPendingMFA = errors.New("no pending mfa challenge")
)

// MFATicket — одноразовая транзакция второго фактора (mfa_tx из ответа 202).
// Значение можно получить только один раз через Consume.
type MFATicket struct {
	tx       string
	consumed atomic.Bool
}

func NewMFATicket(tx string) *MFATicket {
	return &MFATicket{tx: tx}
}

// Consume возвращает mfa_tx при первом вызове; все последующие вызовы
// (в том числе конкурентные) получают ErrMFATicketConsumed.
func (t *MFATicket) Consume() (string, error) {
	if t == nil {
		return "", ErrNoPendingMFA
	}
	if !t.consumed.CompareAndSwap(false, true) {
		return "", ErrMFATicketConsumed
	}

	return t.tx, nil
}

// Consumed сообщает, был ли тикет уже предъявлен.
func (t *MFATicket) Consumed() bool { return t != nil && t.consumed.Load() }
