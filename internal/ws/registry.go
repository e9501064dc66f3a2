package ws

import "sync"

func CompanyGroup(companyID string) string { return "company:" + companyID }

func ConversationGroup(conversationID string) string { return "conversation:" + conversationID }

// Registry keeps the membership index: which live connections belong to which
// group, plus the inverse so a disconnect only touches the groups the
// connection actually joined. Both maps are guarded by one mutex and are
// always mutually consistent.
type Registry struct {
	mu      sync.RWMutex
	byGroup map[string]map[*Conn]struct{}
	byConn  map[*Conn]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		byGroup: make(map[string]map[*Conn]struct{}),
		byConn:  make(map[*Conn]map[string]struct{}),
	}
}

// Add is idempotent; joining an already-joined group changes nothing.
func (r *Registry) Add(group string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.byGroup[group]
	if !ok {
		members = make(map[*Conn]struct{})
		r.byGroup[group] = members
	}
	members[c] = struct{}{}

	groups, ok := r.byConn[c]
	if !ok {
		groups = make(map[string]struct{})
		r.byConn[c] = groups
	}
	groups[group] = struct{}{}
}

// Remove is idempotent; leaving a group never joined is a no-op. Empty group
// entries are deleted on the spot so the index never leaks dead rooms.
func (r *Registry) Remove(group string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(group, c)
}

func (r *Registry) removeLocked(group string, c *Conn) {
	if members, ok := r.byGroup[group]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.byGroup, group)
		}
	}
	if groups, ok := r.byConn[c]; ok {
		delete(groups, group)
		if len(groups) == 0 {
			delete(r.byConn, c)
		}
	}
}

// RemoveConn drops the connection from every group it belongs to, in one
// critical section, so no concurrent MembersOf can see a half-removed state.
func (r *Registry) RemoveConn(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for group := range r.byConn[c] {
		if members, ok := r.byGroup[group]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(r.byGroup, group)
			}
		}
	}
	delete(r.byConn, c)
}

// MembersOf returns a snapshot; it stays usable while concurrent membership
// changes land, it just may not reflect them.
func (r *Registry) MembersOf(group string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.byGroup[group]
	if len(members) == 0 {
		return nil
	}
	out := make([]*Conn, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	return out
}

// GroupsOf returns a snapshot of the groups the connection currently belongs to.
func (r *Registry) GroupsOf(c *Conn) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	groups := r.byConn[c]
	if len(groups) == 0 {
		return nil
	}
	out := make([]string, 0, len(groups))
	for g := range groups {
		out = append(out, g)
	}
	return out
}
