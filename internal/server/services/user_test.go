package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpetrovsky/webauth/internal/common"
	"github.com/dpetrovsky/webauth/internal/cryptox"
	"github.com/dpetrovsky/webauth/internal/dbx"
	"github.com/dpetrovsky/webauth/internal/server/models"
	"github.com/dpetrovsky/webauth/internal/server/repositories/users"
	"github.com/dpetrovsky/webauth/internal/server/security"
)

// memoryRepository is an in-memory users.Repository with a unique-username
// constraint. Violations surface the same way the postgres repository
// surfaces them: a wrapped *pgconn.PgError with a class 23 code.
type memoryRepository struct {
	nextID    int64
	byName    map[string]*models.User
	createErr error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{nextID: 1, byName: map[string]*models.User{}}
}

func (r *memoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, ok := r.byName[user.Username]; ok {
		return nil, fmt.Errorf("db error: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation})
	}
	stored := *user
	stored.ID = r.nextID
	if stored.Role == "" {
		stored.Role = models.RoleUser
	}
	r.nextID++
	r.byName[stored.Username] = &stored
	return &stored, nil
}

func (r *memoryRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	user, ok := r.byName[username]
	if !ok {
		return nil, common.ErrorUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *memoryRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	for _, user := range r.byName {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, common.ErrorUserNotFound
}

type fakeRepoManager struct {
	repo users.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return m.repo }

// countingHasher wraps a hasher and records how many times each operation
// ran, so tests can assert that no hashing happens for unknown usernames.
type countingHasher struct {
	inner   security.Hasher
	hashes  int
	verifys int
}

func (h *countingHasher) Hash(password string) (string, error) {
	h.hashes++
	return h.inner.Hash(password)
}

func (h *countingHasher) Verify(password, encodedHash string) (bool, error) {
	h.verifys++
	return h.inner.Verify(password, encodedHash)
}

func newTestHasher(t *testing.T) *countingHasher {
	t.Helper()
	hasher, err := cryptox.NewArgon2Hasher(cryptox.Argon2Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  8,
		KeyLength:   16,
	})
	require.NoError(t, err)
	return &countingHasher{inner: hasher}
}

type serviceFixture struct {
	service *UserService
	repo    *memoryRepository
	hasher  *countingHasher
	mock    sqlmock.Sqlmock
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := newMemoryRepository()
	hasher := newTestHasher(t)

	return &serviceFixture{
		service: NewUserService(db, &fakeRepoManager{repo: repo}, security.NewService(hasher, "test-pepper")),
		repo:    repo,
		hasher:  hasher,
		mock:    mock,
	}
}

func TestSignup(t *testing.T) {
	f := newServiceFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	public, err := f.service.Signup(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	require.NotNil(t, public)
	assert.Equal(t, int64(1), public.ID)
	assert.Equal(t, "alice", public.Username)

	stored, err := f.repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, stored.Salt, 16)
	assert.NotContains(t, stored.HashedPassword, "s3cret")
	assert.Equal(t, models.RoleUser, stored.Role)

	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSignup_DuplicateUsername(t *testing.T) {
	f := newServiceFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service.Signup(context.Background(), "alice", "first")
	require.NoError(t, err)

	public, err := f.service.Signup(context.Background(), "alice", "second")
	assert.Nil(t, public)
	require.ErrorIs(t, err, common.ErrorUserAlreadyExists)
	assert.Equal(t, common.ErrorUserAlreadyExists, err, "constraint conflicts carry no extra detail")

	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSignup_StorageFailureKeepsDetail(t *testing.T) {
	f := newServiceFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	f.repo.createErr = errors.New("connection reset")

	_, err := f.service.Signup(context.Background(), "alice", "pw")
	require.ErrorIs(t, err, common.ErrorUserAlreadyExists)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestSignup_SeesOwnInsertBeforeCommit(t *testing.T) {
	f := newServiceFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	public, err := f.service.Signup(context.Background(), "bob", "pw")
	require.NoError(t, err)
	assert.NotZero(t, public.ID, "the follow-up read must observe the inserted row")
}

func signup(t *testing.T, f *serviceFixture, username, password string) *models.PublicUser {
	t.Helper()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	public, err := f.service.Signup(context.Background(), username, password)
	require.NoError(t, err)
	return public
}

func TestLogin(t *testing.T) {
	f := newServiceFixture(t)
	public := signup(t, f, "alice", "s3cret")

	id, err := f.service.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, public.ID, id)
}

func TestLogin_UnknownUsername(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Login(context.Background(), "nobody", "pw")
	require.ErrorIs(t, err, common.ErrorUserNotFound)
	assert.Zero(t, f.hasher.verifys, "no hashing work for unknown usernames")
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newServiceFixture(t)
	signup(t, f, "alice", "right")

	_, err := f.service.Login(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, common.ErrorInvalidPassword)
}

func TestGetUser(t *testing.T) {
	f := newServiceFixture(t)
	public := signup(t, f, "alice", "pw")

	got, err := f.service.GetUser(context.Background(), public.ID)
	require.NoError(t, err)
	assert.Equal(t, public, got)
}

func TestGetUser_Missing(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.GetUser(context.Background(), 404)
	require.ErrorIs(t, err, common.ErrorUserNotFound)
}

// Full round trip: register, authenticate, fetch, and the failure modes of
// each step against the same state.
func TestSignupLoginFetchRoundTrip(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	public := signup(t, f, "carol", "hunter2")

	id, err := f.service.Login(ctx, "carol", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, public.ID, id)

	got, err := f.service.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "carol", got.Username)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.service.Signup(ctx, "carol", "other")
	require.ErrorIs(t, err, common.ErrorUserAlreadyExists)

	_, err = f.service.Login(ctx, "carol", "wrong")
	require.ErrorIs(t, err, common.ErrorInvalidPassword)

	require.NoError(t, f.mock.ExpectationsWereMet())
}
