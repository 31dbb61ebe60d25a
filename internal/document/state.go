package document

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/verustcode/reportviewer/internal/reportapi"
	"github.com/verustcode/reportviewer/pkg/logger"
	"github.com/verustcode/reportviewer/pkg/telemetry"
)

// state is the mutable part of a session. It is only touched under
// stateHolder.mu and only changed through stateHolder.commit.
type state struct {
	cacheID   string
	status    reportapi.ExecutionStatus
	docStatus reportapi.DocumentStatus
	params    []reportapi.Parameter
	disposed  bool
}

// setStatus is the single status setter. Setting the current value is a no-op.
func (st *state) setStatus(s reportapi.ExecutionStatus) {
	if s == "" {
		return
	}
	st.status = s
}

// applyInfo copies a service reply into the state
func (st *state) applyInfo(info *reportapi.ExecutionInfo) {
	st.docStatus = info.DocumentStatus
	status := info.Status
	if status == "" {
		status = info.DocumentStatus.Status
	}
	st.setStatus(status)
	st.docStatus.Status = st.status
}

type subscriber struct {
	id int
	fn func(StatusChange)
}

// stateHolder serialises state transitions, sequences responses and fans
// status changes out to subscribers
type stateHolder struct {
	sessionID string
	log       *zap.Logger
	metrics   *telemetry.Metrics

	mu      sync.Mutex
	st      state
	issued  uint64
	applied uint64
	version uint64
	subs    []subscriber
	nextSub int
}

func newStateHolder(sessionID string, metrics *telemetry.Metrics) *stateHolder {
	return &stateHolder{
		sessionID: sessionID,
		log:       logger.WithSession(sessionID, ""),
		metrics:   metrics,
		st:        state{status: reportapi.StatusNotFound},
	}
}

// begin issues the sequence number for a request about to be sent
func (h *stateHolder) begin() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.issued++
	return h.issued
}

// snapshot returns a copy of the state
func (h *stateHolder) snapshot() state {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := h.st
	st.params = cloneParams(h.st.params)
	return st
}

// applyResponse runs fn if the reply to request seq is still current: no
// newer reply was applied and, when cacheID is set, the cache did not change
// meanwhile. It reports whether fn ran.
func (h *stateHolder) applyResponse(ctx context.Context, seq uint64, cacheID string, fn func(*state)) bool {
	return h.commit(ctx, func(st *state) bool {
		if seq < h.applied {
			h.log.Debug("Discarding stale response",
				zap.Uint64("seq", seq),
				zap.Uint64("applied", h.applied),
			)
			return false
		}
		if cacheID != "" && st.cacheID != cacheID {
			h.log.Debug("Discarding response for replaced cache",
				zap.String(logger.FieldCacheID, cacheID),
				zap.String("current_cache_id", st.cacheID),
			)
			return false
		}
		h.applied = seq
		fn(st)
		return true
	})
}

// applyLocal runs fn unconditionally and marks everything issued so far as
// superseded
func (h *stateHolder) applyLocal(ctx context.Context, fn func(*state)) {
	h.commit(ctx, func(st *state) bool {
		h.applied = h.issued
		fn(st)
		return true
	})
}

// commit is the transition function. It runs fn under the lock and
// notifies subscribers outside it when the status changed.
func (h *stateHolder) commit(ctx context.Context, fn func(*state) bool) bool {
	h.mu.Lock()
	old := h.st.status
	oldCache := h.st.cacheID
	if !fn(&h.st) {
		h.mu.Unlock()
		return false
	}

	var change *StatusChange
	if h.st.status != old {
		h.version++
		change = &StatusChange{
			SessionID: h.sessionID,
			CacheID:   h.st.cacheID,
			Old:       old,
			New:       h.st.status,
			Version:   h.version,
		}
	}
	newCache := h.st.cacheID
	subs := make([]subscriber, len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	switch {
	case oldCache == "" && newCache != "":
		h.metrics.RecordSessionOpened(ctx)
	case oldCache != "" && newCache == "":
		h.metrics.RecordSessionDisposed(ctx)
	}

	if change != nil {
		h.log.Debug("Status changed",
			zap.String(logger.FieldCacheID, change.CacheID),
			zap.String("from", string(change.Old)),
			zap.String(logger.FieldStatus, string(change.New)),
		)
		h.metrics.RecordStatusTransition(ctx, string(change.Old), string(change.New))
		for _, sub := range subs {
			sub.fn(*change)
		}
	}
	return true
}

// subscribe registers fn and returns a function removing it. Calling the
// returned function more than once is harmless.
func (h *stateHolder) subscribe(fn func(StatusChange)) func() {
	h.mu.Lock()
	h.nextSub++
	id := h.nextSub
	h.subs = append(h.subs, subscriber{id: id, fn: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, sub := range h.subs {
				if sub.id == id {
					h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// subscriberCount is used by tests to detect listener leaks
func (h *stateHolder) subscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// cloneParams copies params including their multi-values and allowed values,
// so callers never share backing arrays with the held state
func cloneParams(params []reportapi.Parameter) []reportapi.Parameter {
	if params == nil {
		return nil
	}
	out := make([]reportapi.Parameter, len(params))
	for i, p := range params {
		p.Value = cloneValue(p.Value)
		if p.AllowedValues != nil {
			allowed := make([]reportapi.AllowedValue, len(p.AllowedValues))
			for j, av := range p.AllowedValues {
				av.Value = cloneValue(av.Value)
				allowed[j] = av
			}
			p.AllowedValues = allowed
		}
		out[i] = p
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []any:
		if val == nil {
			return val
		}
		out := make([]any, len(val))
		for i := range val {
			out[i] = cloneValue(val[i])
		}
		return out
	case []string:
		if val == nil {
			return val
		}
		return append([]string(nil), val...)
	}
	return v
}
