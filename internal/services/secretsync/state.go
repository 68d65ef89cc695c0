package secretsync

import (
	"sync"
	"time"
)

// SyncState — общее состояние перезапусков прокси-сервиса. Его делят
// синхронизатор секретов и наблюдатель: cooldown один на всех, кто
// хочет перезапускать службу.
type SyncState struct {
	mu              sync.Mutex
	lastRestartAt   time.Time
	deferredRestart bool
}

// NewSyncState создает новое состояние перезапусков.
func NewSyncState() *SyncState {
	return &SyncState{}
}

// TryRestart сообщает, можно ли перезапускать службу сейчас. Если с
// последнего перезапуска прошло меньше cooldown, перезапуск откладывается:
// взводится флаг, который позже доберёт наблюдатель.
func (s *SyncState) TryRestart(now time.Time, cooldown time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastRestartAt) < cooldown {
		s.deferredRestart = true
		return false
	}
	s.lastRestartAt = now
	s.deferredRestart = false
	return true
}

// TakeDeferred забирает отложенный перезапуск, если он есть и cooldown
// уже истёк. Возвращает true не чаще одного раза на каждый отложенный
// перезапуск.
func (s *SyncState) TakeDeferred(now time.Time, cooldown time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.deferredRestart {
		return false
	}
	if now.Sub(s.lastRestartAt) < cooldown {
		return false
	}
	s.lastRestartAt = now
	s.deferredRestart = false
	return true
}

// ClearDeferred сбрасывает отложенный перезапуск. Вызывается при
// остановке службы: перезапускать остановленное нарочно нечего.
func (s *SyncState) ClearDeferred() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deferredRestart = false
}

// RestartDeferred сообщает, ждёт ли своей очереди отложенный перезапуск.
func (s *SyncState) RestartDeferred() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deferredRestart
}
