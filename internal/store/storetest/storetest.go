// Package storetest holds behaviour tests shared by every store.Store
// backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/testgrid/internal/model"
	"github.com/specialistvlad/testgrid/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises s. The store must be empty.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("CreateAndFind", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.Tests().Create(ctx, &model.Test{
			CampaignID: "c1",
			Name:       "ping",
			Actions:    []model.Action{{Type: "http", Config: map[string]any{"url": "http://x"}}},
			Variables:  []string{"status"},
		})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)

		got, err := s.Tests().FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "ping", got.Name)
		assert.Equal(t, "http://x", got.Actions[0].Config["url"])
		assert.Equal(t, []string{"status"}, got.Variables)
	})

	t.Run("DuplicateID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Campaigns().Create(ctx, &model.Campaign{ID: "c1"})
		require.NoError(t, err)
		_, err = s.Campaigns().Create(ctx, &model.Campaign{ID: "c1"})
		assert.Error(t, err)
	})

	t.Run("NotFound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Reports().FindByID(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Reports().Update(ctx, "nope", map[string]any{"progress": 1})
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.Reports().Delete(ctx, "nope"), store.ErrNotFound)
	})

	t.Run("FindByParentKeepsCreationOrder", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, name := range []string{"b", "a", "c"} {
			_, err := s.Tests().Create(ctx, &model.Test{ID: name, CampaignID: "c1"})
			require.NoError(t, err)
		}
		_, err := s.Tests().Create(ctx, &model.Test{ID: "other", CampaignID: "c2"})
		require.NoError(t, err)

		got, err := s.Tests().FindByParent(ctx, "c1")
		require.NoError(t, err)
		var ids []string
		for _, tt := range got {
			ids = append(ids, tt.ID)
		}
		assert.Equal(t, []string{"b", "a", "c"}, ids)

		all, err := s.Tests().List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("UpdateMergesFields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		started := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

		_, err := s.Reports().Create(ctx, &model.Report{ID: "r1", CampaignID: "c1", Status: model.RunPending})
		require.NoError(t, err)

		updated, err := s.Reports().Update(ctx, "r1", map[string]any{
			"status":     model.RunRunning,
			"started_at": started,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RunRunning, updated.Status)
		assert.Equal(t, "c1", updated.CampaignID)

		got, err := s.Reports().FindByID(ctx, "r1")
		require.NoError(t, err)
		require.NotNil(t, got.StartedAt)
		assert.True(t, started.Equal(*got.StartedAt))

		_, err = s.Reports().Update(ctx, "r1", map[string]any{"id": "r2"})
		assert.Error(t, err)
	})

	t.Run("ReturnedEntitiesAreCopies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		v, err := s.Variables().Create(ctx, &model.Variable{ID: "v1", Environment: "dev", Key: "host", Value: "a"})
		require.NoError(t, err)
		v.Value = "mutated"

		got, err := s.Variables().FindByID(ctx, "v1")
		require.NoError(t, err)
		assert.Equal(t, "a", got.Value)
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Variables().Create(ctx, &model.Variable{ID: "v1", Environment: "dev"})
		require.NoError(t, err)
		require.NoError(t, s.Variables().Delete(ctx, "v1"))

		_, err = s.Variables().FindByID(ctx, "v1")
		assert.ErrorIs(t, err, store.ErrNotFound)
		children, err := s.Variables().FindByParent(ctx, "dev")
		require.NoError(t, err)
		assert.Empty(t, children)
	})

	t.Run("ConcurrentUpdates", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		const n = 20

		for i := 0; i < n; i++ {
			_, err := s.Reports().Create(ctx, &model.Report{ID: fmt.Sprintf("r%d", i)})
			require.NoError(t, err)
		}

		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func(i int) {
				defer wg.Done()
				_, err := s.Reports().Update(ctx, fmt.Sprintf("r%d", i), map[string]any{"progress": i})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		for i := 0; i < n; i++ {
			got, err := s.Reports().FindByID(ctx, fmt.Sprintf("r%d", i))
			require.NoError(t, err)
			assert.Equal(t, i, got.Progress)
		}
	})
}
