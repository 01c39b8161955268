package service

import (
	"context"
	"testing"

	"github.com/asavelyev/notesync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func state(gen, mutatedAt int64, origin, hash string) *models.ItemState {
	return &models.ItemState{
		ID:         "n1",
		Type:       models.TypeNote,
		Generation: gen,
		MutatedAt:  mutatedAt,
		Origin:     origin,
		Hash:       hash,
	}
}

func TestDecide_Matrix(t *testing.T) {
	tests := []struct {
		name   string
		local  *models.ItemState
		remote *models.ItemState
		want   decision
	}{
		{
			name:   "absent locally: pull",
			local:  nil,
			remote: state(1, 100, "phone", "h1"),
			want:   decidePull,
		},
		{
			name:   "absent remotely: push",
			local:  state(1, 100, "laptop", "h1"),
			remote: nil,
			want:   decidePush,
		},
		{
			name:   "absent both: skip",
			local:  nil,
			remote: nil,
			want:   decideSkip,
		},
		{
			name:   "remote generation higher: pull",
			local:  state(2, 100, "laptop", "h1"),
			remote: state(3, 50, "phone", "h2"),
			want:   decidePull,
		},
		{
			name:   "local generation higher: push",
			local:  state(4, 100, "laptop", "h1"),
			remote: state(3, 200, "phone", "h2"),
			want:   decidePush,
		},
		{
			name:   "equal generation equal hash: skip",
			local:  state(3, 100, "laptop", "h1"),
			remote: state(3, 200, "phone", "h1"),
			want:   decideSkip,
		},
		{
			name:   "equal generation divergent content different origins: conflict",
			local:  state(3, 100, "laptop", "h1"),
			remote: state(3, 200, "phone", "h2"),
			want:   decideConflict,
		},
		{
			name:   "equal generation divergent content same origin newer local: push",
			local:  state(3, 200, "laptop", "h1"),
			remote: state(3, 100, "laptop", "h2"),
			want:   decidePush,
		},
		{
			name:   "equal generation divergent content same origin newer remote: pull",
			local:  state(3, 100, "laptop", "h1"),
			remote: state(3, 200, "laptop", "h2"),
			want:   decidePull,
		},
		{
			name:   "equal everything but hash: conflict",
			local:  state(3, 100, "laptop", "h1"),
			remote: state(3, 100, "laptop", "h2"),
			want:   decideConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decide(tt.local, tt.remote))
		})
	}
}

func TestBuildPlan_Buckets(t *testing.T) {
	ctx := context.Background()

	local := []models.ItemState{
		noteStateAt("only-local", 1, "laptop", 100, notePayload("a", "1")),
		noteStateAt("newer-local", 3, "laptop", 100, notePayload("b", "2")),
		noteStateAt("same", 2, "laptop", 100, notePayload("c", "3")),
		noteStateAt("diverged", 2, "laptop", 100, notePayload("d", "4")),
	}
	remote := map[string]remoteItem{
		"only-remote": {item: noteItemAt("only-remote", 1, "phone", 100, notePayload("e", "5")), token: "t1"},
		"newer-local": {item: noteItemAt("newer-local", 2, "phone", 100, notePayload("b", "old")), token: "t2"},
		"same":        {item: noteItemAt("same", 2, "laptop", 100, notePayload("c", "3")), token: "t3"},
		"diverged":    {item: noteItemAt("diverged", 2, "phone", 200, notePayload("d", "other")), token: "t4"},
	}

	plan, err := buildPlan(ctx, local, remote, func(string) bool { return false })
	require.NoError(t, err)

	require.Len(t, plan.Pull, 1)
	assert.Equal(t, "only-remote", plan.Pull[0].ID)

	pushIDs := make([]string, 0, len(plan.Push))
	for _, st := range plan.Push {
		pushIDs = append(pushIDs, st.ID)
	}
	assert.ElementsMatch(t, []string{"only-local", "newer-local"}, pushIDs)

	require.Len(t, plan.Conflicts, 1)
	assert.Equal(t, "diverged", plan.Conflicts[0].LocalState.ID)
	assert.Equal(t, "t4", plan.Conflicts[0].RemoteToken)

	assert.Equal(t, 1, plan.Skipped)
	assert.False(t, plan.Empty())
}

func TestBuildPlan_TombstonedExcluded(t *testing.T) {
	ctx := context.Background()

	local := []models.ItemState{
		noteStateAt("dead-local", 2, "laptop", 100, notePayload("x", "1")),
	}
	remote := map[string]remoteItem{
		"dead-remote": {item: noteItemAt("dead-remote", 1, "phone", 100, notePayload("y", "2")), token: "t1"},
	}
	deleted := map[string]bool{"dead-local": true, "dead-remote": true}

	plan, err := buildPlan(ctx, local, remote, func(id string) bool { return deleted[id] })
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	assert.Zero(t, plan.Skipped)
}

func TestBuildPlan_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := buildPlan(ctx, []models.ItemState{noteStateAt("n1", 1, "laptop", 100, notePayload("a", "1"))},
		map[string]remoteItem{}, func(string) bool { return false })
	require.Error(t, err)
}
