package orchestrator

import "sync"

// runtime is the ephemeral, non-persisted state the orchestration task owns
// for one session: collaborator handles, the stop signal, cached binding
// parameters, and a handle to the background task's completion.
type runtime struct {
	session *Session
	stop    *stopSignal
	done    chan struct{} // closed when the orchestration task returns

	display DisplayHandle
	browser BrowserHandle
	encoder EncoderHandle

	// boundReceiver is the receiver name this session currently owns in the
	// binding registry, captured at play time so teardown can release it
	// even after the session record has been deleted from the registry.
	boundReceiver string
}

// Registry is the in-process mapping of session id to session record and
// runtime. Writers (create/delete) serialize with a single mutex; readers
// (status/list) take the same lock only briefly to copy a reference.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]*runtime
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*runtime)}
}

func (r *Registry) put(rt *runtime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rt.session.ID] = rt
}

func (r *Registry) get(id string) (*runtime, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.byID[id]
	return rt, ok
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// Get returns the session record for id, if a live session exists.
func (r *Registry) Get(id string) (*Session, bool) {
	rt, ok := r.get(id)
	if !ok {
		return nil, false
	}
	return rt.session, true
}

// All returns a snapshot slice of every currently-registered session.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.byID))
	for _, rt := range r.byID {
		out = append(out, rt.session)
	}
	return out
}
