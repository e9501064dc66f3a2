package ws

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryJoinLeaveIdempotent(t *testing.T) {
	reg := NewRegistry()
	c := newConn(nil, "co1", 8)

	reg.Add("conversation:c1", c)
	reg.Add("conversation:c1", c) // joining twice has the effect of once
	require.Len(t, reg.MembersOf("conversation:c1"), 1)

	reg.Add("conversation:c2", c)
	assert.ElementsMatch(t, []string{"conversation:c1", "conversation:c2"}, reg.GroupsOf(c))

	reg.Remove("conversation:c2", c)
	reg.Remove("conversation:c2", c) // leaving twice is a no-op, not an error
	assert.Empty(t, reg.MembersOf("conversation:c2"))
	assert.ElementsMatch(t, []string{"conversation:c1"}, reg.GroupsOf(c))

	reg.Remove("conversation:never-joined", c)
	assert.ElementsMatch(t, []string{"conversation:c1"}, reg.GroupsOf(c))
}

func TestRegistryRemoveConnClearsEveryGroup(t *testing.T) {
	reg := NewRegistry()
	a := newConn(nil, "co1", 8)
	b := newConn(nil, "co2", 8)

	reg.Add(CompanyGroup("co1"), a)
	reg.Add(ConversationGroup("c1"), a)
	reg.Add(ConversationGroup("c2"), a)
	reg.Add(ConversationGroup("c1"), b)

	reg.RemoveConn(a)

	assert.Empty(t, reg.GroupsOf(a))
	assert.Empty(t, reg.MembersOf(CompanyGroup("co1")))
	assert.Empty(t, reg.MembersOf(ConversationGroup("c2")))
	require.Len(t, reg.MembersOf(ConversationGroup("c1")), 1)
	assert.Same(t, b, reg.MembersOf(ConversationGroup("c1"))[0])

	// no empty member sets may linger in the index
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for group, members := range reg.byGroup {
		assert.NotEmpty(t, members, "group %q kept an empty member set", group)
	}
}

func TestRegistryMappingsStayConsistent(t *testing.T) {
	reg := NewRegistry()
	a := newConn(nil, "co1", 8)
	b := newConn(nil, "co2", 8)

	reg.Add(ConversationGroup("c1"), a)
	reg.Add(ConversationGroup("c1"), b)
	reg.Add(ConversationGroup("c2"), b)

	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for group, members := range reg.byGroup {
		for c := range members {
			_, ok := reg.byConn[c][group]
			assert.True(t, ok, "conn in group %q missing inverse entry", group)
		}
	}
	for c, groups := range reg.byConn {
		for group := range groups {
			_, ok := reg.byGroup[group][c]
			assert.True(t, ok, "inverse entry for %q without member entry", group)
		}
	}
}

func TestRegistryConcurrentChurn(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := newConn(nil, fmt.Sprintf("co%d", i), 8)
			for j := 0; j < 100; j++ {
				group := ConversationGroup(fmt.Sprintf("c%d", j%4))
				reg.Add(group, c)
				reg.MembersOf(group)
				reg.Remove(group, c)
			}
			reg.RemoveConn(c)
		}(i)
	}
	wg.Wait()

	for j := 0; j < 4; j++ {
		assert.Empty(t, reg.MembersOf(ConversationGroup(fmt.Sprintf("c%d", j))))
	}
}
