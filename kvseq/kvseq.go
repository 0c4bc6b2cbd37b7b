// Package kvseq 把 badger 中同一前缀下的 value 依次作为 source，交给 catreader 拼接读取。
// 适合一个大对象被切成多个 chunk 存放在 key/value 中的场景。
package kvseq

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/dgraph-io/badger/v4"
	"github.com/gofish2020/catreader"
)

// Key 生成 prefix + 大端序 i，保证 chunk 按 i 的顺序排列
func Key(prefix []byte, i uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], i)
	return key
}

// Sequence 按 key 的顺序产出 prefix 下每个 value，source 的 identity 是 key。
// 只读事务和迭代器在第一次 Next 时才创建，Close 时释放。
type Sequence struct {
	db     *badger.DB
	prefix []byte

	txn     *badger.Txn
	it      *badger.Iterator
	yielded bool // 迭代器当前位置的 value 已经交出去了
	closed  bool
}

func New(db *badger.DB, prefix []byte) *Sequence {
	return &Sequence{db: db, prefix: prefix}
}

// NewReader concatenates every value stored under prefix.
func NewReader(db *badger.DB, prefix []byte) *catreader.Reader {
	return catreader.New(New(db, prefix))
}

func (s *Sequence) Next() (io.Reader, error) {
	if s.closed {
		return nil, io.EOF
	}

	if s.it == nil {
		s.txn = s.db.NewTransaction(false)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // value 在被取到时才加载
		opts.Prefix = s.prefix
		s.it = s.txn.NewIterator(opts)
		s.it.Seek(s.prefix)
	} else if s.yielded {
		s.it.Next()
	}
	s.yielded = false

	if !s.it.ValidForPrefix(s.prefix) {
		// 迭代完立即释放事务，之后的 Next 一直返回 io.EOF
		return nil, s.release()
	}

	item := s.it.Item()
	// 读取失败时不前进，下一次 Next 重试同一个 key
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	s.yielded = true
	return catreader.Tag(string(item.KeyCopy(nil)), bytes.NewReader(value)), nil
}

func (s *Sequence) Close() error {
	if s.closed {
		return nil
	}
	s.release()
	return nil
}

func (s *Sequence) release() error {
	s.closed = true
	if s.it != nil {
		s.it.Close()
		s.it = nil
	}
	if s.txn != nil {
		s.txn.Discard()
		s.txn = nil
	}
	return io.EOF
}
