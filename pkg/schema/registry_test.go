package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_AddRemoveIdempotent(t *testing.T) {
	r := NewRegistry("dbo.customers")

	assert.False(t, r.Add("dbo.customers"))
	assert.True(t, r.Add("dbo.remitTransactions"))
	assert.False(t, r.Add("dbo.remitTransactions"))

	assert.True(t, r.Remove("dbo.customers"))
	assert.False(t, r.Remove("dbo.customers"))
	assert.False(t, r.Remove("dbo.never_added"))
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry("dbo.remitTransactions", "dbo.customers", "audit.events")

	assert.Equal(t, []string{"audit.events", "dbo.customers", "dbo.remitTransactions"}, r.List())
}

func TestRegistry_Contains(t *testing.T) {
	r := NewRegistry("dbo.customers")

	assert.True(t, r.Contains("dbo.customers"))
	assert.False(t, r.Contains("dbo.remitTransactions"))
}
