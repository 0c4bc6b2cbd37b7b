// 一个目录下有多个 segment 文件（一个活跃的 + 多个不可变的），文件由 block 组成，block 中保存 chunk。
// 整个 wal 的记录可以通过 NewReader 作为一个连续的字节流按写入顺序读出来。

package tinywal

import (
	"errors"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofish2020/catreader"
	lru "github.com/hashicorp/golang-lru/v2"
)

type TinyWal struct {
	option Options
	mutex  sync.RWMutex
	// 当前写入的 segment
	active *segment
	// 写满之后的 segment
	immutable map[SegmentID]*segment
	// 所有 segment 共用的 block 缓存，key = segment id << 32 | block index
	blockCache *lru.Cache[uint64, []byte]
	// 上次 fsync 之后写入的字节数
	bytesWrite uint64
	closed     bool
}

// Open 打开目录下已有的 segment 文件，目录为空时创建第一个 segment
func Open(option Options) (*TinyWal, error) {
	if !strings.HasPrefix(option.SegmentFileExt, ".") {
		return nil, errors.New("tinywal: segment file extension must start with '.'")
	}
	if err := os.MkdirAll(option.Dir, fs.ModePerm); err != nil {
		return nil, err
	}

	wal := &TinyWal{
		option:    option,
		immutable: make(map[SegmentID]*segment),
	}

	if option.BlockCacheSize > 0 {
		blockNum := option.BlockCacheSize / blockSize
		if option.BlockCacheSize%blockSize != 0 {
			blockNum++
		}
		cache, err := lru.New[uint64, []byte](int(blockNum))
		if err != nil {
			return nil, err
		}
		wal.blockCache = cache
	}

	entries, err := os.ReadDir(option.Dir)
	if err != nil {
		return nil, err
	}
	var ids []SegmentID
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := catreader.FileNumber(entry.Name(), option.SegmentFileExt)
		if !ok || id < firstSegmentID || id > math.MaxUint32 {
			continue
		}
		// 0000000001.log 和 1.log 是同一个 segment
		if segmentPath(option.Dir, option.SegmentFileExt, SegmentID(id)) != filepath.Join(option.Dir, entry.Name()) {
			continue
		}
		ids = append(ids, SegmentID(id))
	}
	if len(ids) == 0 {
		ids = append(ids, firstSegmentID)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})

	for i, id := range ids {
		seg, err := openSegment(option.Dir, option.SegmentFileExt, id, wal.blockCache)
		if err != nil {
			_ = wal.Close()
			return nil, err
		}
		// 编号最大的是活跃 segment
		if i == len(ids)-1 {
			wal.active = seg
		} else {
			wal.immutable[seg.id] = seg
		}
	}
	return wal, nil
}

// 一条记录最多占用的空间
func (wal *TinyWal) maxWriteSize(size int64) int64 {
	return chunkHeaderSize + size + (size/blockSize+1)*chunkHeaderSize
}

func (wal *TinyWal) isFull(size int64) bool {
	return wal.active.Size()+wal.maxWriteSize(size) > wal.option.SegmentSize
}

// rotate 把活跃 segment 变成不可变的，并创建下一个编号的 segment
func (wal *TinyWal) rotate() error {
	if err := wal.active.Sync(); err != nil {
		return err
	}
	wal.bytesWrite = 0
	seg, err := openSegment(wal.option.Dir, wal.option.SegmentFileExt, wal.active.id+1, wal.blockCache)
	if err != nil {
		return err
	}
	wal.immutable[wal.active.id] = wal.active
	wal.active = seg
	return nil
}

// Write 追加一条记录
func (wal *TinyWal) Write(data []byte) (*ChunkPosition, error) {
	wal.mutex.Lock()
	defer wal.mutex.Unlock()

	if wal.closed {
		return nil, ErrClosed
	}
	if wal.maxWriteSize(int64(len(data))) > wal.option.SegmentSize {
		return nil, ErrDataTooLarge
	}
	if wal.isFull(int64(len(data))) {
		if err := wal.rotate(); err != nil {
			return nil, err
		}
	}

	pos, err := wal.active.Write(data)
	if err != nil {
		return nil, err
	}

	wal.bytesWrite += uint64(pos.ChunkSize)
	isSync := wal.option.Sync
	if !isSync && wal.option.BytesPerSync > 0 && wal.bytesWrite >= wal.option.BytesPerSync {
		isSync = true
	}
	if isSync {
		if err := wal.active.Sync(); err != nil {
			return nil, err
		}
		wal.bytesWrite = 0
	}
	return pos, nil
}

// segments 返回按编号排序的所有 segment
func (wal *TinyWal) segments() []*segment {
	all := make([]*segment, 0, len(wal.immutable)+1)
	for _, seg := range wal.immutable {
		all = append(all, seg)
	}
	all = append(all, wal.active)
	sort.Slice(all, func(i, j int) bool {
		return all[i].id < all[j].id
	})
	return all
}

// Segments 按编号顺序产出每个 segment 的记录流（只包含 payload，不包含 chunk header）。
// 调用时的 segment 列表是固定的，之后 rotate 出来的新 segment 不会出现在其中。
func (wal *TinyWal) Segments() catreader.Sequence {
	wal.mutex.RLock()
	segs := wal.segments()
	wal.mutex.RUnlock()

	progress := 0
	return catreader.SequenceFunc(func() (io.Reader, error) {
		if progress >= len(segs) {
			return nil, io.EOF
		}
		seg := segs[progress]
		progress++
		return &segmentStream{wal: wal, seg: seg}, nil
	})
}

// NewReader 把所有 segment 中的记录按写入顺序拼成一个字节流，
// Identity 返回当前数据所在的 segment 文件路径。
func (wal *TinyWal) NewReader() *catreader.Reader {
	return catreader.New(wal.Segments())
}

func (wal *TinyWal) Sync() error {
	wal.mutex.Lock()
	defer wal.mutex.Unlock()
	return wal.active.Sync()
}

func (wal *TinyWal) Close() error {
	wal.mutex.Lock()
	defer wal.mutex.Unlock()

	if wal.closed {
		return nil
	}
	wal.closed = true

	if wal.blockCache != nil {
		wal.blockCache.Purge()
	}
	// 一个 segment 关闭失败也要继续关闭其它的，返回第一个错误
	var err error
	for _, seg := range wal.immutable {
		if cerr := seg.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	wal.immutable = nil
	// Open 失败时 active 可能还没有创建
	if wal.active != nil {
		if cerr := wal.active.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
