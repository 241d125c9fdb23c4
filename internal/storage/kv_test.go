package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// KVTestSuite runs the same contract checks against every backend.
type KVTestSuite struct {
	suite.Suite
	newKV func(t *testing.T) KV
	kv    KV
	ctx   context.Context
}

// SetupTest runs before each test
func (suite *KVTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.kv = suite.newKV(suite.T())
}

// TearDownTest runs after each test
func (suite *KVTestSuite) TearDownTest() {
	if suite.kv != nil {
		suite.kv.Close()
	}
}

func (suite *KVTestSuite) TestGetMissingKey() {
	_, err := suite.kv.Get(suite.ctx, "missing")
	assert.ErrorIs(suite.T(), err, ErrKeyNotFound)
}

func (suite *KVTestSuite) TestPutAndGet() {
	err := suite.kv.Put(suite.ctx, Entry{Key: "a", Value: []byte("1")})
	require.NoError(suite.T(), err)

	got, err := suite.kv.Get(suite.ctx, "a")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []byte("1"), got)
}

func (suite *KVTestSuite) TestPutOverwrites() {
	require.NoError(suite.T(), suite.kv.Put(suite.ctx, Entry{Key: "a", Value: []byte("first")}))
	require.NoError(suite.T(), suite.kv.Put(suite.ctx, Entry{Key: "a", Value: []byte("second")}))

	got, err := suite.kv.Get(suite.ctx, "a")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "second", string(got))
}

func (suite *KVTestSuite) TestPutMany() {
	err := suite.kv.Put(suite.ctx,
		Entry{Key: "x", Value: []byte("1")},
		Entry{Key: "y", Value: []byte("2")},
	)
	require.NoError(suite.T(), err)

	x, err := suite.kv.Get(suite.ctx, "x")
	require.NoError(suite.T(), err)
	y, err := suite.kv.Get(suite.ctx, "y")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "1", string(x))
	assert.Equal(suite.T(), "2", string(y))
}

func (suite *KVTestSuite) TestDelete() {
	require.NoError(suite.T(), suite.kv.Put(suite.ctx,
		Entry{Key: "x", Value: []byte("1")},
		Entry{Key: "y", Value: []byte("2")},
		Entry{Key: "z", Value: []byte("3")},
	))

	require.NoError(suite.T(), suite.kv.Delete(suite.ctx, "x", "y", "never-written"))

	_, err := suite.kv.Get(suite.ctx, "x")
	assert.ErrorIs(suite.T(), err, ErrKeyNotFound)
	_, err = suite.kv.Get(suite.ctx, "y")
	assert.ErrorIs(suite.T(), err, ErrKeyNotFound)

	z, err := suite.kv.Get(suite.ctx, "z")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "3", string(z))
}

func (suite *KVTestSuite) TestGetReturnsCopy() {
	require.NoError(suite.T(), suite.kv.Put(suite.ctx, Entry{Key: "a", Value: []byte("abc")}))

	got, err := suite.kv.Get(suite.ctx, "a")
	require.NoError(suite.T(), err)
	got[0] = 'z'

	again, err := suite.kv.Get(suite.ctx, "a")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "abc", string(again))
}

// Test suite runners
func TestMemoryKVSuite(t *testing.T) {
	suite.Run(t, &KVTestSuite{newKV: func(t *testing.T) KV {
		return NewMemoryKV()
	}})
}

func TestSQLiteKVSuite(t *testing.T) {
	suite.Run(t, &KVTestSuite{newKV: func(t *testing.T) KV {
		kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "kv.db"))
		require.NoError(t, err, "failed to create sqlite kv")
		return kv
	}})
}

func TestSQLiteInMemoryKVSuite(t *testing.T) {
	suite.Run(t, &KVTestSuite{newKV: func(t *testing.T) KV {
		kv, err := NewSQLiteKV(":memory:")
		require.NoError(t, err, "failed to create in-memory sqlite kv")
		return kv
	}})
}

func TestRedisKVSuite(t *testing.T) {
	suite.Run(t, &KVTestSuite{newKV: func(t *testing.T) KV {
		mr := miniredis.RunT(t)
		kv, err := NewRedisKV(context.Background(), RedisOptions{Addr: mr.Addr(), Prefix: "test:"})
		require.NoError(t, err, "failed to connect to miniredis")
		return kv
	}})
}

func TestRedisKV_UsesPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	kv, err := NewRedisKV(context.Background(), RedisOptions{Addr: mr.Addr(), Prefix: "ledger:"})
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.Put(context.Background(), Entry{Key: KeyCurrentUserName, Value: []byte("John")}))

	got, err := mr.Get("ledger:" + KeyCurrentUserName)
	require.NoError(t, err)
	assert.Equal(t, "John", got)
}

func TestNewRedisKV_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisKV(context.Background(), RedisOptions{Addr: addr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestSQLiteKV_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	kv, err := NewSQLiteKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Put(context.Background(), Entry{Key: "a", Value: []byte("kept")}))
	require.NoError(t, kv.Close())

	// Migrations must be a no-op the second time.
	kv, err = NewSQLiteKV(path)
	require.NoError(t, err)
	defer kv.Close()

	got, err := kv.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "kept", string(got))
}

func TestNewSQLiteKV_InvalidPath(t *testing.T) {
	// A directory cannot be opened as a database file.
	_, err := NewSQLiteKV(t.TempDir())
	assert.Error(t, err)
}
