package kvseq

import (
	"fmt"
	"io"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/gofish2020/catreader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func putChunks(t *testing.T, db *badger.DB, prefix string, chunks ...string) {
	err := db.Update(func(txn *badger.Txn) error {
		for i, c := range chunks {
			if err := txn.Set(Key([]byte(prefix), uint64(i)), []byte(c)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestReaderConcatenatesValues(t *testing.T) {
	db := openDB(t)
	putChunks(t, db, "blob/a/", "He", "", "llo", " world")
	putChunks(t, db, "blob/b/", "other")

	r := NewReader(db, []byte("blob/a/"))
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", string(got))
	require.NoError(t, r.Close())
}

func TestReaderIdentityIsKey(t *testing.T) {
	db := openDB(t)
	var chunks []string
	for i := 0; i < 300; i++ {
		chunks = append(chunks, fmt.Sprintf("%03d", i))
	}
	putChunks(t, db, "k/", chunks...)

	r := NewReader(db, []byte("k/"))
	defer r.Close()

	buf := make([]byte, 3)
	for i := 0; i < len(chunks); i++ {
		_, err := io.ReadFull(r, buf)
		require.NoError(t, err)
		assert.Equal(t, chunks[i], string(buf))

		id, ok := r.Identity()
		require.True(t, ok)
		assert.Equal(t, string(Key([]byte("k/"), uint64(i))), id)
	}
	_, err := r.Read(buf)
	assert.Equal(t, io.EOF, err)
}

func TestEmptyPrefix(t *testing.T) {
	db := openDB(t)
	putChunks(t, db, "x/", "data")

	seq := New(db, []byte("missing/"))
	_, err := seq.Next()
	assert.Equal(t, io.EOF, err)
	require.NoError(t, seq.Close())
	require.NoError(t, seq.Close())

	_, err = seq.Next()
	assert.Equal(t, io.EOF, err)
}

func TestSequenceIsLazy(t *testing.T) {
	db := openDB(t)
	r := NewReader(db, []byte("late/"))
	defer r.Close()

	// 构造之后写入的数据仍然可见：事务在第一次 Next 时才开始
	putChunks(t, db, "late/", "a", "b")
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(got))
}

func TestKeyOrder(t *testing.T) {
	assert.Less(t, string(Key([]byte("p"), 9)), string(Key([]byte("p"), 10)))
	assert.Less(t, string(Key([]byte("p"), 255)), string(Key([]byte("p"), 256)))
}

func TestSequenceReleasedAtEnd(t *testing.T) {
	db := openDB(t)
	putChunks(t, db, "p/", "a", "b")

	seq := New(db, []byte("p/"))
	for i := 0; i < 2; i++ {
		src, err := seq.Next()
		require.NoError(t, err)
		require.NotNil(t, src)
	}
	_, err := seq.Next()
	assert.Equal(t, io.EOF, err)
	// 没有调用 Close，迭代器和事务也已经释放
	assert.Nil(t, seq.it)
	assert.Nil(t, seq.txn)

	_, err = seq.Next()
	assert.Equal(t, io.EOF, err)
	assert.Nil(t, seq.txn)
	assert.NoError(t, seq.Close())
}

func TestReaderReleasesSequenceAtEnd(t *testing.T) {
	db := openDB(t)
	putChunks(t, db, "p/", "x", "y", "z")

	seq := New(db, []byte("p/"))
	got, err := io.ReadAll(catreader.New(seq))
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(got))
	assert.Nil(t, seq.it)
	assert.Nil(t, seq.txn)
}
