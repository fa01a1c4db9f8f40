package syncer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobsync/internal/identity"
	"github.com/amishk599/jobsync/internal/model"
)

func TestPreview_CountsWithoutWriting(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(store, 500)

	seed := &fakeCollector{items: items(posting("1", "SRE"))}
	_, err := engine.Run(context.Background(), "p", seed, model.ModeFull)
	require.NoError(t, err)
	runsBefore := len(store.runs)

	broken := posting("9", "Broken")
	broken.ApplyURL = "not a url"
	c := &fakeCollector{items: []collected{
		{raw: posting("1", "SRE")},
		{raw: posting("2", "SDE")},
		{raw: posting("2", "sde!")},
		{err: &model.PageError{Collector: "fake", Page: "3", Err: errors.New("HTTP 502")}},
		{raw: broken},
	}}

	p, err := engine.Preview(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Raw)
	assert.Zero(t, p.Rejected)
	assert.Equal(t, 1, p.Duplicates)
	assert.Equal(t, 1, p.PagesFailed)
	require.Len(t, p.Jobs, 3)
	assert.Equal(t, "sde!", p.Jobs[1].Title)
	assert.Empty(t, p.Jobs[2].ApplyURL)

	assert.False(t, p.New[identity.Resolve("Acme", "SRE", "1")])
	assert.True(t, p.New[identity.Resolve("Acme", "SDE", "2")])
	assert.True(t, p.New[identity.Resolve("Acme", "Broken", "9")])

	assert.Len(t, store.jobs, 1)
	assert.Len(t, store.runs, runsBefore)
	assert.Empty(t, c.gotCursor)
}

func TestPreview_FatalErrorStops(t *testing.T) {
	engine := newTestEngine(newMemStore(), 500)
	c := &fakeCollector{items: []collected{
		{raw: posting("1", "a")},
		{err: errors.New("connection refused")},
	}}

	p, err := engine.Preview(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, p.Raw)
}
