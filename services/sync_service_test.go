package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Dosada05/rating-board/models"
	"github.com/stretchr/testify/require"
)

type fakeRosterClient struct {
	members []models.Member
	err     error
}

func (f *fakeRosterClient) FetchMembers(ctx context.Context) ([]models.Member, error) {
	return f.members, f.err
}

type fakeLinkageClient struct {
	accounts []models.LinkedAccount
	err      error
}

func (f *fakeLinkageClient) FetchLinkedAccounts(ctx context.Context) ([]models.LinkedAccount, error) {
	return f.accounts, f.err
}

type fakeRatingClient struct {
	histories map[string]models.RatingHistory
	failFor   string
	calls     []string
}

func (f *fakeRatingClient) FetchHistory(ctx context.Context, atcoderName string) (models.RatingHistory, error) {
	f.calls = append(f.calls, atcoderName)
	if atcoderName == f.failFor {
		return models.RatingHistory{}, errors.New("unexpected status 503")
	}
	return f.histories[atcoderName], nil
}

type fakeUserRepository struct {
	upserts   [][]models.User
	upsertErr error
}

func (f *fakeUserRepository) List(ctx context.Context) ([]models.User, error) {
	return nil, nil
}

func (f *fakeUserRepository) GetByName(ctx context.Context, trapAccountName string) (*models.User, error) {
	return nil, nil
}

func (f *fakeUserRepository) UpsertAll(ctx context.Context, users []models.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	snapshot := make([]models.User, len(users))
	copy(snapshot, users)
	f.upserts = append(f.upserts, snapshot)
	return nil
}

type fakeExporter struct {
	exports [][]models.User
	err     error
}

func (f *fakeExporter) Export(ctx context.Context, users []models.User) error {
	if f.err != nil {
		return f.err
	}
	snapshot := make([]models.User, len(users))
	copy(snapshot, users)
	f.exports = append(f.exports, snapshot)
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func newTestSyncService(
	roster *fakeRosterClient,
	linkage *fakeLinkageClient,
	ratings *fakeRatingClient,
	repo *fakeUserRepository,
	exporter *fakeExporter,
) SyncService {
	if exporter == nil {
		// a typed nil would make the interface non-nil
		return NewSyncService(roster, linkage, ratings, repo, nil, nil, testLogger())
	}
	return NewSyncService(roster, linkage, ratings, repo, exporter, nil, testLogger())
}

func TestSyncRunMergesLinkedMemberWithRosterAndHistory(t *testing.T) {
	roster := &fakeRosterClient{members: []models.Member{
		{TrapAccountName: "alice", IsActive: true, IsAlgoTeam: true, Grade: strPtr("21B")},
	}}
	linkage := &fakeLinkageClient{accounts: []models.LinkedAccount{
		{TrapAccountName: "alice", AtCoderName: strPtr("alice_ac")},
	}}
	ratings := &fakeRatingClient{histories: map[string]models.RatingHistory{
		"alice_ac": {
			Algo: []models.ContestResult{
				{NewRating: 800, OldRating: 0, Diff: 800},
				{NewRating: 1200, OldRating: 800, Diff: 400},
			},
			Heur: []models.ContestResult{},
		},
	}}
	repo := &fakeUserRepository{}

	svc := newTestSyncService(roster, linkage, ratings, repo, nil)
	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, repo.upserts, 1)
	require.Len(t, repo.upserts[0], 1)

	user := repo.upserts[0][0]
	require.Equal(t, "alice", user.TrapAccountName)
	require.NotNil(t, user.AtCoderName)
	require.Equal(t, "alice_ac", *user.AtCoderName)
	require.NotNil(t, user.AtCoderRating)
	require.Equal(t, 1200, *user.AtCoderRating)
	// linked account with an empty history for a category gets 0, not null
	require.NotNil(t, user.HeuristicRating)
	require.Equal(t, 0, *user.HeuristicRating)
	require.NotNil(t, user.IsActive)
	require.True(t, *user.IsActive)
	require.NotNil(t, user.IsAlgoTeam)
	require.True(t, *user.IsAlgoTeam)
	require.NotNil(t, user.Grade)
	require.Equal(t, "21B", *user.Grade)
}

func TestSyncRunUnlinkedMemberWithoutRosterMatch(t *testing.T) {
	roster := &fakeRosterClient{}
	linkage := &fakeLinkageClient{accounts: []models.LinkedAccount{
		{TrapAccountName: "bob"},
	}}
	ratings := &fakeRatingClient{}
	repo := &fakeUserRepository{}

	svc := newTestSyncService(roster, linkage, ratings, repo, nil)
	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, repo.upserts, 1)
	require.Len(t, repo.upserts[0], 1)

	user := repo.upserts[0][0]
	require.Equal(t, "bob", user.TrapAccountName)
	require.Nil(t, user.AtCoderName)
	require.Nil(t, user.AtCoderRating)
	require.Nil(t, user.HeuristicRating)
	require.Nil(t, user.IsActive)
	require.Nil(t, user.IsAlgoTeam)
	require.Nil(t, user.Grade)
	require.Empty(t, ratings.calls)
}

func TestSyncRunLinkageDrivesThePersistedSet(t *testing.T) {
	// carol exists only in the roster: she must not be persisted.
	roster := &fakeRosterClient{members: []models.Member{
		{TrapAccountName: "alice", IsActive: true},
		{TrapAccountName: "carol", IsActive: true},
	}}
	linkage := &fakeLinkageClient{accounts: []models.LinkedAccount{
		{TrapAccountName: "alice"},
		{TrapAccountName: "bob"},
	}}
	repo := &fakeUserRepository{}

	svc := newTestSyncService(roster, linkage, &fakeRatingClient{}, repo, nil)
	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, repo.upserts, 1)
	names := make([]string, 0)
	for _, user := range repo.upserts[0] {
		names = append(names, user.TrapAccountName)
	}
	require.Equal(t, []string{"alice", "bob"}, names)
}

func TestSyncRunFetchesEachDistinctAccountOnce(t *testing.T) {
	shared := strPtr("shared_ac")
	linkage := &fakeLinkageClient{accounts: []models.LinkedAccount{
		{TrapAccountName: "alice", AtCoderName: shared},
		{TrapAccountName: "bob", AtCoderName: strPtr("shared_ac")},
		{TrapAccountName: "carol", AtCoderName: strPtr("carol_ac")},
	}}
	ratings := &fakeRatingClient{histories: map[string]models.RatingHistory{}}
	repo := &fakeUserRepository{}

	svc := newTestSyncService(&fakeRosterClient{}, linkage, ratings, repo, nil)
	require.NoError(t, svc.Run(context.Background()))

	require.Equal(t, []string{"shared_ac", "carol_ac"}, ratings.calls)
}

func TestSyncRunRatingFailureAbortsBeforeStorage(t *testing.T) {
	linkage := &fakeLinkageClient{accounts: []models.LinkedAccount{
		{TrapAccountName: "alice", AtCoderName: strPtr("alice_ac")},
		{TrapAccountName: "bob", AtCoderName: strPtr("bob_ac")},
	}}
	ratings := &fakeRatingClient{failFor: "bob_ac"}
	repo := &fakeUserRepository{}
	exporter := &fakeExporter{}

	svc := newTestSyncService(&fakeRosterClient{}, linkage, ratings, repo, exporter)
	err := svc.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "bob_ac")

	require.Empty(t, repo.upserts, "storage must stay untouched on a failed run")
	require.Empty(t, exporter.exports)
}

func TestSyncRunRosterFailureAborts(t *testing.T) {
	roster := &fakeRosterClient{err: errors.New("connection refused")}
	repo := &fakeUserRepository{}

	svc := newTestSyncService(roster, &fakeLinkageClient{}, &fakeRatingClient{}, repo, nil)
	require.Error(t, svc.Run(context.Background()))
	require.Empty(t, repo.upserts)
}

func TestSyncRunStorageFailurePropagates(t *testing.T) {
	linkage := &fakeLinkageClient{accounts: []models.LinkedAccount{
		{TrapAccountName: "alice"},
	}}
	repo := &fakeUserRepository{upsertErr: errors.New("deadlock detected")}
	exporter := &fakeExporter{}

	svc := newTestSyncService(&fakeRosterClient{}, linkage, &fakeRatingClient{}, repo, exporter)
	require.Error(t, svc.Run(context.Background()))
	require.Empty(t, exporter.exports, "exporter must not run after a failed upsert")
}

func TestSyncRunIsDeterministic(t *testing.T) {
	roster := &fakeRosterClient{members: []models.Member{
		{TrapAccountName: "alice", IsActive: true, IsAlgoTeam: true, Grade: strPtr("21B")},
		{TrapAccountName: "bob", IsActive: false},
	}}
	linkage := &fakeLinkageClient{accounts: []models.LinkedAccount{
		{TrapAccountName: "alice", AtCoderName: strPtr("alice_ac")},
		{TrapAccountName: "bob"},
	}}
	ratings := &fakeRatingClient{histories: map[string]models.RatingHistory{
		"alice_ac": {Algo: []models.ContestResult{{NewRating: 1500}}},
	}}
	repo := &fakeUserRepository{}

	svc := newTestSyncService(roster, linkage, ratings, repo, nil)
	require.NoError(t, svc.Run(context.Background()))
	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, repo.upserts, 2)
	require.Equal(t, repo.upserts[0], repo.upserts[1])
}

func TestSyncRunExporterFailureDoesNotFailRun(t *testing.T) {
	linkage := &fakeLinkageClient{accounts: []models.LinkedAccount{
		{TrapAccountName: "alice"},
	}}
	repo := &fakeUserRepository{}
	exporter := &fakeExporter{err: errors.New("bucket not found")}

	svc := newTestSyncService(&fakeRosterClient{}, linkage, &fakeRatingClient{}, repo, exporter)
	require.NoError(t, svc.Run(context.Background()))
	require.Len(t, repo.upserts, 1)
}

func TestSyncRunExporterReceivesCommittedSnapshot(t *testing.T) {
	linkage := &fakeLinkageClient{accounts: []models.LinkedAccount{
		{TrapAccountName: "alice", AtCoderName: strPtr("alice_ac")},
	}}
	ratings := &fakeRatingClient{histories: map[string]models.RatingHistory{
		"alice_ac": {Algo: []models.ContestResult{{NewRating: 2000}}},
	}}
	repo := &fakeUserRepository{}
	exporter := &fakeExporter{}

	svc := newTestSyncService(&fakeRosterClient{}, linkage, ratings, repo, exporter)
	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, exporter.exports, 1)
	require.Equal(t, repo.upserts[0], exporter.exports[0])
}
