package session

import (
	"sort"

	"github.com/aretw0/mise/pkg/domain"
)

// Registry holds the live sessions keyed by recipe ID and the active pointer.
// It is plain storage: it is not safe for concurrent use on its own and only the
// Machine mutates it.
type Registry struct {
	sessions map[string]*domain.Session
	activeID string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*domain.Session),
	}
}

// Get returns a snapshot of the session for recipeID.
func (r *Registry) Get(recipeID string) (domain.Session, bool) {
	s, ok := r.sessions[recipeID]
	if !ok {
		return domain.Session{}, false
	}
	return *s, true
}

// Active returns a snapshot of the session the active pointer refers to.
func (r *Registry) Active() (domain.Session, bool) {
	if r.activeID == "" {
		return domain.Session{}, false
	}
	return r.Get(r.activeID)
}

// ActiveID returns the active recipe ID, if any.
func (r *Registry) ActiveID() (string, bool) {
	return r.activeID, r.activeID != ""
}

// IDs lists the recipe IDs with a live session, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}

func (r *Registry) lookup(recipeID string) *domain.Session {
	return r.sessions[recipeID]
}

func (r *Registry) active() *domain.Session {
	if r.activeID == "" {
		return nil
	}
	return r.sessions[r.activeID]
}

func (r *Registry) put(s *domain.Session) {
	r.sessions[s.RecipeID] = s
}

// remove deletes the session and clears the active pointer if it referred to it.
func (r *Registry) remove(recipeID string) {
	delete(r.sessions, recipeID)
	if r.activeID == recipeID {
		r.activeID = ""
	}
}

// setActive points at an existing session; unknown IDs clear the pointer so it
// can never dangle.
func (r *Registry) setActive(recipeID string) {
	if _, ok := r.sessions[recipeID]; !ok {
		r.activeID = ""
		return
	}
	r.activeID = recipeID
}
