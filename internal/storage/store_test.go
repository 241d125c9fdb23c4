package storage

import (
	"context"
	"testing"
	"time"

	"expense-ledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// StoreTestSuite provides a test suite for the users document contract
type StoreTestSuite struct {
	suite.Suite
	kv    *MemoryKV
	store *Store
	ctx   context.Context
}

// SetupTest runs before each test
func (suite *StoreTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.kv = NewMemoryKV()
	suite.store = NewStore(suite.kv, nil)
}

func sampleUsers() []models.User {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return []models.User{
		{
			ID:   uuid.New(),
			Name: "John",
			ExpenseClusters: []models.ExpenseCluster{
				{ID: uuid.New(), Date: day, Expenses: []models.Expense{
					models.NewExpense("car", decimal.NewFromInt(100)),
					models.NewExpense("coffee", decimal.RequireFromString("3.75")),
				}},
				{ID: uuid.New(), Date: day.AddDate(0, 0, 1), Expenses: []models.Expense{
					models.NewExpense("food", decimal.RequireFromString("20.10")),
				}},
			},
		},
		models.NewUser("Jane Doe"),
	}
}

func (suite *StoreTestSuite) TestGetAllUsers_NothingStored() {
	users, err := suite.store.GetAllUsers(suite.ctx)
	assert.Nil(suite.T(), users)
	assert.ErrorIs(suite.T(), err, ErrNoUsers)
	assert.ErrorIs(suite.T(), err, ErrDecode, "absent data is a decode failure too")
}

func (suite *StoreTestSuite) TestGetAllUsers_Malformed() {
	require.NoError(suite.T(), suite.kv.Put(suite.ctx, Entry{Key: KeyUsersInfo, Value: []byte("{not json")}))

	_, err := suite.store.GetAllUsers(suite.ctx)
	assert.ErrorIs(suite.T(), err, ErrDecode)
	assert.NotErrorIs(suite.T(), err, ErrNoUsers)
}

func (suite *StoreTestSuite) TestReplaceAndGetRoundTrip() {
	want := sampleUsers()
	require.NoError(suite.T(), suite.store.ReplaceAllUsers(suite.ctx, want))

	got, err := suite.store.GetAllUsers(suite.ctx)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), got, len(want))
	for i := range want {
		assert.True(suite.T(), want[i].Equal(got[i]), "user %d differs after round trip:\nwant %+v\ngot  %+v", i, want[i], got[i])
	}
}

func (suite *StoreTestSuite) TestReplaceOverwritesWholeCollection() {
	require.NoError(suite.T(), suite.store.ReplaceAllUsers(suite.ctx, sampleUsers()))

	only := []models.User{models.NewUser("Solo")}
	require.NoError(suite.T(), suite.store.ReplaceAllUsers(suite.ctx, only))

	got, err := suite.store.GetAllUsers(suite.ctx)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), got, 1)
	assert.Equal(suite.T(), "Solo", got[0].Name)
}

func (suite *StoreTestSuite) TestReplaceRejectsDuplicateIDs() {
	require.NoError(suite.T(), suite.store.ReplaceAllUsers(suite.ctx, sampleUsers()))

	u := models.NewUser("Twin")
	err := suite.store.ReplaceAllUsers(suite.ctx, []models.User{u, u})
	assert.ErrorIs(suite.T(), err, ErrDuplicateUser)

	got, err := suite.store.GetAllUsers(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), got, 2, "previous collection must stay authoritative")
}

func (suite *StoreTestSuite) TestReplaceWithEmptyCollection() {
	require.NoError(suite.T(), suite.store.ReplaceAllUsers(suite.ctx, nil))

	got, err := suite.store.GetAllUsers(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), got)
}

func (suite *StoreTestSuite) TestCurrentUser() {
	_, err := suite.store.GetCurrentUserID(suite.ctx)
	assert.ErrorIs(suite.T(), err, ErrNotLoggedIn)

	_, ok, err := suite.store.GetCurrentUserName(suite.ctx)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)

	id := uuid.New()
	require.NoError(suite.T(), suite.store.SetCurrentUser(suite.ctx, id, "John"))

	gotID, err := suite.store.GetCurrentUserID(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), id, gotID)

	name, ok, err := suite.store.GetCurrentUserName(suite.ctx)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), "John", name)

	require.NoError(suite.T(), suite.store.ClearCurrentUser(suite.ctx))
	_, err = suite.store.GetCurrentUserID(suite.ctx)
	assert.ErrorIs(suite.T(), err, ErrNotLoggedIn)
	_, ok, err = suite.store.GetCurrentUserName(suite.ctx)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)
}

func (suite *StoreTestSuite) TestClearCurrentUserKeepsUsers() {
	users := sampleUsers()
	require.NoError(suite.T(), suite.store.ReplaceAllUsers(suite.ctx, users))
	require.NoError(suite.T(), suite.store.SetCurrentUser(suite.ctx, users[0].ID, users[0].Name))

	require.NoError(suite.T(), suite.store.ClearCurrentUser(suite.ctx))

	got, err := suite.store.GetAllUsers(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), got, len(users))
}

func (suite *StoreTestSuite) TestGetCurrentUserID_Malformed() {
	require.NoError(suite.T(), suite.kv.Put(suite.ctx, Entry{Key: KeyCurrentUserID, Value: []byte("nope")}))

	_, err := suite.store.GetCurrentUserID(suite.ctx)
	assert.ErrorIs(suite.T(), err, ErrDecode)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func TestStore_OnSQLite(t *testing.T) {
	kv, err := NewSQLiteKV(":memory:")
	require.NoError(t, err)
	store := NewStore(kv, nil)
	defer store.Close()

	users := sampleUsers()
	require.NoError(t, store.ReplaceAllUsers(context.Background(), users))
	require.NoError(t, store.SetCurrentUser(context.Background(), users[1].ID, users[1].Name))

	got, err := store.GetAllUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, users[0].Equal(got[0]))

	id, err := store.GetCurrentUserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, users[1].ID, id)
}

func TestDecodeUsers_Null(t *testing.T) {
	users, err := DecodeUsers([]byte("null"))
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}
