package repositories

import (
	"testing"

	"postsapi/app/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNextID(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	defer db.Close()

	t.Run("first ID", func(t *testing.T) {
		err := db.Update(func(txn *badger.Txn) error {
			id, err := getNextID(txn, PostSeqKey)
			assert.NoError(t, err)
			assert.Equal(t, 1, id)
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("sequential IDs", func(t *testing.T) {
		err := db.Update(func(txn *badger.Txn) error {
			for i := 2; i <= 5; i++ {
				id, err := getNextID(txn, PostSeqKey)
				assert.NoError(t, err)
				assert.Equal(t, i, id)
			}
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("different sequence keys", func(t *testing.T) {
		err := db.Update(func(txn *badger.Txn) error {
			commentID, err := getNextID(txn, CommentSeqKey)
			assert.NoError(t, err)
			assert.Equal(t, 1, commentID, "Comment sequence should start from 1")
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("persistence", func(t *testing.T) {
		err := db.Update(func(txn *badger.Txn) error {
			id, err := getNextID(txn, "test:seq")
			assert.NoError(t, err)
			assert.Equal(t, 1, id)
			return nil
		})
		assert.NoError(t, err)

		err = db.Update(func(txn *badger.Txn) error {
			id, err := getNextID(txn, "test:seq")
			assert.NoError(t, err)
			assert.Equal(t, 2, id)
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("corrupt sequence", func(t *testing.T) {
		require.NoError(t, db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte("bad:seq"), []byte("not-a-number"))
		}))
		err := db.Update(func(txn *badger.Txn) error {
			_, err := getNextID(txn, "bad:seq")
			return err
		})
		assert.Error(t, err)
	})
}

func TestKeysSortInIDOrder(t *testing.T) {
	assert.Less(t, string(postKey(2)), string(postKey(10)))
	assert.Less(t, string(commentKey(1, 9)), string(commentKey(1, 11)))
	assert.Less(t, string(commentKey(1, 99)), string(commentKey(2, 1)))
	assert.Equal(t, "comment:0000000003:", string(commentPrefix(3)))
}

func TestMarshalEntity(t *testing.T) {
	t.Run("marshal post", func(t *testing.T) {
		post := &models.Post{ID: 1, Title: "Test Post", Contents: "Test Contents"}

		data, err := marshalEntity(post)
		assert.NoError(t, err)

		var unmarshaled models.Post
		err = unmarshalEntity(data, &unmarshaled)
		assert.NoError(t, err)
		assert.Equal(t, post.ID, unmarshaled.ID)
		assert.Equal(t, post.Title, unmarshaled.Title)
		assert.Equal(t, post.Contents, unmarshaled.Contents)
	})

	t.Run("marshal invalid entity", func(t *testing.T) {
		invalidEntity := struct {
			Ch chan int
		}{
			Ch: make(chan int),
		}

		_, err := marshalEntity(invalidEntity)
		assert.Error(t, err)
	})

	t.Run("unmarshal invalid JSON", func(t *testing.T) {
		var post models.Post
		err := unmarshalEntity([]byte(`{"id":1,invalid json}`), &post)
		assert.Error(t, err)
	})
}
