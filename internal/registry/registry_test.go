package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/training-planner/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	items     map[uuid.UUID]types.Artifact
	order     []uuid.UUID
	lastLimit int
	err       error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{items: make(map[uuid.UUID]types.Artifact)}
}

func (m *memoryStore) GetArtifact(_ context.Context, kind types.ArtifactKind, id uuid.UUID) (types.Artifact, error) {
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.items[id]
	if !ok || a.Kind() != kind {
		return nil, nil
	}
	return a, nil
}

func (m *memoryStore) ListArtifacts(_ context.Context, kind types.ArtifactKind, limit int) ([]types.Artifact, error) {
	m.lastLimit = limit
	var out []types.Artifact
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		if a := m.items[m.order[i]]; a.Kind() == kind {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateArtifact(_ context.Context, a types.Artifact) error {
	if m.err != nil {
		return m.err
	}
	id := uuid.New()
	now := time.Now()
	switch v := a.(type) {
	case *types.Role:
		v.ID, v.CreatedAt = id, now
	case *types.RuleSet:
		v.ID, v.CreatedAt = id, now
	case *types.MustHaves:
		v.ID, v.CreatedAt = id, now
	case *types.ReturnFormat:
		v.ID, v.CreatedAt = id, now
	}
	m.items[id] = a
	m.order = append(m.order, id)
	return nil
}

func TestCreate_EachKind(t *testing.T) {
	tests := []struct {
		kind    types.ArtifactKind
		payload string
	}{
		{types.KindRole, `{"title": "Coach", "system_instructions": "You coach runners."}`},
		{types.KindRuleSet, `{"name": "Safe", "rules": [" Ramp 10% ", "Rest Mondays"]}`},
		{types.KindMustHaves, `{"name": "Core", "required_paths": ["name", "phases[].weeks[].runs[].type"]}`},
		{types.KindReturnFormat, `{"name": "v1", "schema": {"type": "object"}}`},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			store := newMemoryStore()
			svc := New(store)

			created, err := svc.Create(context.Background(), tt.kind, []byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, created.Kind())
			assert.NotEqual(t, uuid.Nil, created.ArtifactID())

			got, err := svc.Get(context.Background(), tt.kind, created.ArtifactID())
			require.NoError(t, err)
			assert.Equal(t, created, got)
		})
	}
}

func TestCreate_TrimsRules(t *testing.T) {
	svc := New(newMemoryStore())

	a, err := svc.Create(context.Background(), types.KindRuleSet, []byte(`{"name": "Safe", "rules": [" Ramp 10% ", "Rest Mondays"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ramp 10%", "Rest Mondays"}, a.(*types.RuleSet).Rules)
}

func TestCreate_IgnoresClientIdentity(t *testing.T) {
	svc := New(newMemoryStore())
	clientID := uuid.New()

	a, err := svc.Create(context.Background(), types.KindRole,
		[]byte(`{"id": "`+clientID.String()+`", "title": "Coach", "system_instructions": "x", "created_at": "2020-01-01T00:00:00Z"}`))
	require.NoError(t, err)
	assert.NotEqual(t, clientID, a.ArtifactID())
	assert.True(t, a.(*types.Role).CreatedAt.After(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		kind    types.ArtifactKind
		payload string
		field   string
	}{
		{"malformed json", types.KindRole, `{"title":`, "body"},
		{"unknown field", types.KindRole, `{"title": "a", "system_instructions": "b", "persona": "c"}`, "body"},
		{"missing title", types.KindRole, `{"system_instructions": "b"}`, "Title"},
		{"no rules", types.KindRuleSet, `{"name": "x", "rules": []}`, "Rules"},
		{"blank rule", types.KindRuleSet, `{"name": "x", "rules": ["ok", "   "]}`, "rules[1]"},
		{"bad path", types.KindMustHaves, `{"name": "x", "required_paths": ["phases..name"]}`, "required_paths[0]"},
		{"schema does not compile", types.KindReturnFormat, `{"name": "x", "schema": {"type": "nope"}}`, "schema"},
		{"unknown kind", types.ArtifactKind("persona"), `{}`, "kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			_, err := New(store).Create(context.Background(), tt.kind, []byte(tt.payload))

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Fields)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
			assert.Empty(t, store.items)
		})
	}
}

func TestCreate_StoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("disk full")

	_, err := New(store).Create(context.Background(), types.KindRole, []byte(`{"title": "a", "system_instructions": "b"}`))
	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestGet_NotFound(t *testing.T) {
	svc := New(newMemoryStore())
	id := uuid.New()

	_, err := svc.Get(context.Background(), types.KindRole, id)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, id, nf.ID)

	a, err := svc.GetArtifact(context.Background(), types.KindRole, id)
	assert.NoError(t, err)
	assert.Nil(t, a)
}

func TestGet_WrongKindIsNotFound(t *testing.T) {
	svc := New(newMemoryStore())
	role, err := svc.Create(context.Background(), types.KindRole, []byte(`{"title": "a", "system_instructions": "b"}`))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), types.KindRuleSet, role.ArtifactID())
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestList_NewestFirstAndLimits(t *testing.T) {
	store := newMemoryStore()
	svc := New(store)
	for _, title := range []string{"first", "second", "third"} {
		_, err := svc.Create(context.Background(), types.KindRole, []byte(`{"title": "`+title+`", "system_instructions": "x"}`))
		require.NoError(t, err)
	}

	list, err := svc.List(context.Background(), types.KindRole, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "third", list[0].(*types.Role).Title)
	assert.Equal(t, "second", list[1].(*types.Role).Title)

	_, err = svc.List(context.Background(), types.KindRole, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, store.lastLimit)

	_, err = svc.List(context.Background(), types.KindRole, 10_000)
	require.NoError(t, err)
	assert.Equal(t, MaxListLimit, store.lastLimit)
}
