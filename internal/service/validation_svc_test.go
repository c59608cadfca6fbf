package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KattaManasa0402/Marine-life/internal/model"
	"github.com/KattaManasa0402/Marine-life/internal/repository"
)

// memStore is an in-memory ValidationStore. Atomic snapshots the state and
// restores it when fn fails, which gives nested calls savepoint semantics.
type memStore struct {
	state   *memState
	saveErr error
}

type memState struct {
	items  map[int64]*model.Classification
	votes  map[int64]*model.Vote
	nextID int64
	clock  time.Time
}

func newMemStore() *memStore {
	return &memStore{
		state: &memState{
			items: make(map[int64]*model.Classification),
			votes: make(map[int64]*model.Vote),
			clock: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func (m *memStore) addItem(id int64, aiSpecies, aiHealth *string) {
	m.state.items[id] = &model.Classification{MediaItemID: id, AISpeciesGuess: aiSpecies, AIHealthGuess: aiHealth}
}

func (m *memStore) item(id int64) model.Classification {
	return *m.state.items[id]
}

func (m *memStore) votesFor(mediaItemID int64) []model.Vote {
	var out []model.Vote
	for _, v := range m.state.votes {
		if v.MediaItemID == mediaItemID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memStore) FindClassification(_ context.Context, id int64) (*model.Classification, error) {
	c, ok := m.state.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) GetVote(_ context.Context, mediaItemID, userID int64) (*model.Vote, error) {
	for _, v := range m.state.votes {
		if v.MediaItemID == mediaItemID && v.UserID == userID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) GetVoteByID(_ context.Context, voteID int64) (*model.Vote, error) {
	v, ok := m.state.votes[voteID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memStore) UpsertVote(ctx context.Context, mediaItemID, userID int64, p model.VotePayload) (*model.Vote, bool, error) {
	m.state.clock = m.state.clock.Add(time.Second)
	existing, err := m.GetVote(ctx, mediaItemID, userID)
	created := errors.Is(err, repository.ErrNotFound)
	v := existing
	if created {
		m.state.nextID++
		v = &model.Vote{
			ID:             m.state.nextID,
			MediaItemID:    mediaItemID,
			UserID:         userID,
			SpeciesVerdict: model.VerdictAbstain,
			HealthVerdict:  model.VerdictAbstain,
			CreatedAt:      m.state.clock,
		}
	}
	if p.SpeciesVerdict != nil {
		v.SpeciesVerdict = *p.SpeciesVerdict
	}
	if p.CorrectedSpecies != nil {
		v.CorrectedSpecies = p.CorrectedSpecies
	}
	if v.SpeciesVerdict != model.VerdictDispute {
		v.CorrectedSpecies = nil
	}
	if p.HealthVerdict != nil {
		v.HealthVerdict = *p.HealthVerdict
	}
	if p.CorrectedHealth != nil {
		v.CorrectedHealth = p.CorrectedHealth
	}
	if v.HealthVerdict != model.VerdictDispute {
		v.CorrectedHealth = nil
	}
	if p.Comment != nil {
		v.Comment = p.Comment
	}
	v.UpdatedAt = m.state.clock
	m.state.votes[v.ID] = v
	cp := *v
	return &cp, created, nil
}

func (m *memStore) ListVotes(_ context.Context, mediaItemID int64) ([]model.Vote, error) {
	return m.votesFor(mediaItemID), nil
}

func (m *memStore) DeleteVote(_ context.Context, voteID int64) (int64, error) {
	v, ok := m.state.votes[voteID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	delete(m.state.votes, voteID)
	return v.MediaItemID, nil
}

func (m *memStore) SaveConsensus(_ context.Context, id int64, res model.ConsensusResult) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	c, ok := m.state.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.ConsensusResult = res
	return nil
}

func (m *memStore) Atomic(_ context.Context, fn func(ValidationStore) error) error {
	snapshot := m.state.clone()
	if err := fn(m); err != nil {
		*m.state = *snapshot
		return err
	}
	return nil
}

func (s *memState) clone() *memState {
	out := &memState{
		items:  make(map[int64]*model.Classification, len(s.items)),
		votes:  make(map[int64]*model.Vote, len(s.votes)),
		nextID: s.nextID,
		clock:  s.clock,
	}
	for k, v := range s.items {
		cp := *v
		out.items[k] = &cp
	}
	for k, v := range s.votes {
		cp := *v
		out.votes[k] = &cp
	}
	return out
}

type recordingNotifier struct {
	events []model.RewardEvent
	err    error
}

func (r *recordingNotifier) Award(_ context.Context, ev model.RewardEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func verdictp(v model.Verdict) *model.Verdict { return &v }

func confirmPayload() model.VotePayload {
	return model.VotePayload{SpeciesVerdict: verdictp(model.VerdictConfirm)}
}

func newTestValidationService(store ValidationStore, rewards RewardNotifier) *ValidationService {
	return NewValidationService(store, NewEvaluator(3), rewards, nil, DefaultPointsPerVote)
}

func TestSubmitVote_MediaNotFound(t *testing.T) {
	store := newMemStore()
	svc := newTestValidationService(store, nil)

	_, err := svc.SubmitVote(context.Background(), 42, 1, confirmPayload())

	assert.ErrorIs(t, err, ErrMediaNotFound)
	assert.Empty(t, store.state.votes)
}

func TestSubmitVote_EmptyVoteRejected(t *testing.T) {
	store := newMemStore()
	store.addItem(1, strp("Clownfish"), nil)
	svc := newTestValidationService(store, nil)

	blank := "   "
	payloads := []model.VotePayload{
		{},
		{SpeciesVerdict: verdictp(model.VerdictAbstain), HealthVerdict: verdictp(model.VerdictAbstain)},
		{Comment: &blank},
	}
	for _, p := range payloads {
		_, err := svc.SubmitVote(context.Background(), 1, 7, p)
		assert.ErrorIs(t, err, ErrEmptyVote)
	}
	assert.Empty(t, store.state.votes)
}

func TestSubmitVote_InvalidVerdictCombinations(t *testing.T) {
	store := newMemStore()
	store.addItem(1, strp("Clownfish"), nil)
	svc := newTestValidationService(store, nil)

	payloads := []model.VotePayload{
		{SpeciesVerdict: verdictp(model.VerdictDispute)},
		{SpeciesVerdict: verdictp(model.VerdictConfirm), CorrectedSpecies: strp("Damselfish")},
		{HealthVerdict: verdictp("maybe")},
		{CorrectedHealth: strp("Sick")},
	}
	for _, p := range payloads {
		_, err := svc.SubmitVote(context.Background(), 1, 7, p)
		assert.ErrorIs(t, err, ErrInvalidVerdict)
	}
	assert.Empty(t, store.state.votes)
}

func TestSubmitVote_CommentOnlyAccepted(t *testing.T) {
	store := newMemStore()
	store.addItem(1, strp("Clownfish"), nil)
	svc := newTestValidationService(store, nil)

	resp, err := svc.SubmitVote(context.Background(), 1, 7, model.VotePayload{Comment: strp("nice shot")})

	require.NoError(t, err)
	assert.True(t, resp.Created)
	assert.Equal(t, model.VerdictAbstain, resp.Vote.SpeciesVerdict)
	assert.Equal(t, 0, store.item(1).Score)
}

func TestSubmitVote_ResubmissionUpdatesInPlace(t *testing.T) {
	store := newMemStore()
	store.addItem(1, strp("Clownfish"), strp("Healthy"))
	svc := newTestValidationService(store, nil)
	ctx := context.Background()

	_, err := svc.SubmitVote(ctx, 1, 7, model.VotePayload{
		SpeciesVerdict: verdictp(model.VerdictConfirm),
		HealthVerdict:  verdictp(model.VerdictConfirm),
		Comment:        strp("first"),
	})
	require.NoError(t, err)

	_, err = svc.SubmitVote(ctx, 1, 7, model.VotePayload{
		SpeciesVerdict:   verdictp(model.VerdictDispute),
		CorrectedSpecies: strp("Damselfish"),
	})
	require.NoError(t, err)

	last, err := svc.SubmitVote(ctx, 1, 7, model.VotePayload{
		SpeciesVerdict:   verdictp(model.VerdictDispute),
		CorrectedSpecies: strp("Tomato Clownfish"),
	})
	require.NoError(t, err)
	assert.False(t, last.Created)

	votes := store.votesFor(1)
	require.Len(t, votes, 1)
	v := votes[0]
	assert.Equal(t, model.VerdictDispute, v.SpeciesVerdict)
	assert.Equal(t, "Tomato Clownfish", *v.CorrectedSpecies)
	assert.Equal(t, model.VerdictConfirm, v.HealthVerdict, "omitted health verdict must be kept")
	require.NotNil(t, v.Comment)
	assert.Equal(t, "first", *v.Comment, "omitted comment must be kept")
}

func TestSubmitVote_CorrectionClearedWhenVerdictChanges(t *testing.T) {
	store := newMemStore()
	store.addItem(1, strp("Clownfish"), nil)
	svc := newTestValidationService(store, nil)
	ctx := context.Background()

	_, err := svc.SubmitVote(ctx, 1, 7, model.VotePayload{
		SpeciesVerdict:   verdictp(model.VerdictDispute),
		CorrectedSpecies: strp("Damselfish"),
	})
	require.NoError(t, err)
	_, err = svc.SubmitVote(ctx, 1, 7, confirmPayload())
	require.NoError(t, err)

	v := store.votesFor(1)[0]
	assert.Equal(t, model.VerdictConfirm, v.SpeciesVerdict)
	assert.Nil(t, v.CorrectedSpecies)
}

func TestSubmitVote_RewardFiresOnce(t *testing.T) {
	store := newMemStore()
	store.addItem(1, strp("Clownfish"), nil)
	rewards := &recordingNotifier{}
	svc := newTestValidationService(store, rewards)
	ctx := context.Background()

	_, err := svc.SubmitVote(ctx, 1, 7, confirmPayload())
	require.NoError(t, err)
	require.Len(t, rewards.events, 1)
	assert.Equal(t, int64(7), rewards.events[0].UserID)
	assert.Equal(t, DefaultPointsPerVote, rewards.events[0].Points)
	assert.Equal(t, "vote:1:7", rewards.events[0].EventID)

	_, err = svc.SubmitVote(ctx, 1, 7, model.VotePayload{
		SpeciesVerdict:   verdictp(model.VerdictDispute),
		CorrectedSpecies: strp("Damselfish"),
	})
	require.NoError(t, err)
	assert.Len(t, rewards.events, 1, "updating a vote must not award again")
}

func TestSubmitVote_NonPositivePointsDisableRewards(t *testing.T) {
	for _, points := range []int{0, -4} {
		store := newMemStore()
		store.addItem(1, strp("Clownfish"), nil)
		rewards := &recordingNotifier{}
		svc := NewValidationService(store, NewEvaluator(3), rewards, nil, points)

		resp, err := svc.SubmitVote(context.Background(), 1, 7, confirmPayload())
		require.NoError(t, err)
		assert.True(t, resp.Created)
		assert.Empty(t, rewards.events, "points=%d", points)
	}
}

func TestSubmitVote_RewardFailureSwallowed(t *testing.T) {
	store := newMemStore()
	store.addItem(1, strp("Clownfish"), nil)
	rewards := &recordingNotifier{err: errors.New("ledger unavailable")}
	svc := newTestValidationService(store, rewards)

	resp, err := svc.SubmitVote(context.Background(), 1, 7, confirmPayload())

	require.NoError(t, err)
	assert.NotNil(t, resp.Vote)
	assert.Len(t, store.votesFor(1), 1)
}

func TestSubmitVote_ConsensusWriteFailureIsNonFatal(t *testing.T) {
	store := newMemStore()
	store.addItem(1, strp("Clownfish"), nil)
	svc := newTestValidationService(store, nil)
	ctx := context.Background()

	for user := int64(1); user <= 3; user++ {
		_, err := svc.SubmitVote(ctx, 1, user, confirmPayload())
		require.NoError(t, err)
	}
	require.NotNil(t, store.item(1).ConsensusSpecies)

	store.saveErr = errors.New("write timeout")
	_, err := svc.SubmitVote(ctx, 1, 4, model.VotePayload{
		SpeciesVerdict:   verdictp(model.VerdictDispute),
		CorrectedSpecies: strp("Damselfish"),
	})
	require.NoError(t, err)
	assert.Len(t, store.votesFor(1), 4, "vote must persist despite consensus failure")
	assert.Equal(t, 3, store.item(1).Score, "stale consensus is left untouched")

	store.saveErr = nil
	c, err := svc.ReEvaluate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Score)
	assert.Equal(t, 2, store.item(1).Score)
}

func TestClownfishScenario_EndToEnd(t *testing.T) {
	store := newMemStore()
	store.addItem(1, strp("Clownfish"), nil)
	svc := newTestValidationService(store, nil)
	ctx := context.Background()

	for user := int64(1); user <= 3; user++ {
		_, err := svc.SubmitVote(ctx, 1, user, confirmPayload())
		require.NoError(t, err)
	}
	c, err := svc.ReEvaluate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Score)
	assert.Equal(t, "Clownfish", deref(c.ConsensusSpecies))
	assert.True(t, c.IsValidated)

	_, err = svc.SubmitVote(ctx, 1, 4, model.VotePayload{
		SpeciesVerdict:   verdictp(model.VerdictDispute),
		CorrectedSpecies: strp("Damselfish"),
	})
	require.NoError(t, err)

	c, err = svc.ReEvaluate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Score)
	assert.Equal(t, "Clownfish", deref(c.ConsensusSpecies))
	assert.True(t, c.IsValidated)
}

func TestReEvaluate_Idempotent(t *testing.T) {
	store := newMemStore()
	store.addItem(1, strp("Clownfish"), strp("Healthy"))
	svc := newTestValidationService(store, nil)
	ctx := context.Background()

	for user := int64(1); user <= 4; user++ {
		_, err := svc.SubmitVote(ctx, 1, user, model.VotePayload{
			SpeciesVerdict: verdictp(model.VerdictConfirm),
			HealthVerdict:  verdictp(model.VerdictConfirm),
		})
		require.NoError(t, err)
	}

	first, err := svc.ReEvaluate(ctx, 1)
	require.NoError(t, err)
	second, err := svc.ReEvaluate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ConsensusResult, second.ConsensusResult)
}

func TestReEvaluate_MediaNotFound(t *testing.T) {
	svc := newTestValidationService(newMemStore(), nil)

	_, err := svc.ReEvaluate(context.Background(), 9)

	assert.ErrorIs(t, err, ErrMediaNotFound)
}

func TestDeleteVote_SelfHeals(t *testing.T) {
	store := newMemStore()
	store.addItem(1, strp("Clownfish"), nil)
	svc := newTestValidationService(store, nil)
	ctx := context.Background()

	var ids []int64
	for user := int64(1); user <= 3; user++ {
		resp, err := svc.SubmitVote(ctx, 1, user, confirmPayload())
		require.NoError(t, err)
		ids = append(ids, resp.Vote.ID)
	}
	require.True(t, store.item(1).IsValidated)

	require.NoError(t, svc.DeleteVote(ctx, ids[1]))

	c := store.item(1)
	assert.Nil(t, c.ConsensusSpecies)
	assert.False(t, c.IsValidated)
	assert.Equal(t, 2, c.Score)

	again, err := svc.ReEvaluate(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, again.ConsensusSpecies)
}

func TestDeleteVote_NotFound(t *testing.T) {
	svc := newTestValidationService(newMemStore(), nil)

	err := svc.DeleteVote(context.Background(), 99)

	assert.ErrorIs(t, err, ErrVoteNotFound)
}

func TestGetVote(t *testing.T) {
	store := newMemStore()
	store.addItem(1, strp("Clownfish"), nil)
	svc := newTestValidationService(store, nil)
	ctx := context.Background()

	_, err := svc.GetVote(ctx, 1, 7)
	assert.ErrorIs(t, err, ErrVoteNotFound)

	_, err = svc.SubmitVote(ctx, 1, 7, confirmPayload())
	require.NoError(t, err)

	v, err := svc.GetVote(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictConfirm, v.SpeciesVerdict)
}

func TestListVotes_NewestFirst(t *testing.T) {
	store := newMemStore()
	store.addItem(1, strp("Clownfish"), nil)
	svc := newTestValidationService(store, nil)
	ctx := context.Background()

	for user := int64(1); user <= 3; user++ {
		_, err := svc.SubmitVote(ctx, 1, user, confirmPayload())
		require.NoError(t, err)
	}

	votes, err := svc.ListVotes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, votes, 3)
	assert.Equal(t, int64(3), votes[0].UserID)
	assert.Equal(t, int64(1), votes[2].UserID)

	_, err = svc.ListVotes(ctx, 99)
	assert.ErrorIs(t, err, ErrMediaNotFound)
}
