package tinywal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

type SegmentID = uint32

// segment 对应目录下的一个文件，文件由多个 32KB 的 block 组成，block 中保存 chunk
type segment struct {
	id   SegmentID
	path string
	fd   *os.File
	// 最后一个 block 的编号和已使用大小
	lastBlockIndex uint32
	lastBlockSize  uint32
	// 复用的 chunk header
	header []byte
	closed bool
	cache  *lru.Cache[uint64, []byte]
}

func segmentPath(dir, ext string, id SegmentID) string {
	return filepath.Join(dir, fmt.Sprintf("%010d"+ext, id))
}

func openSegment(dir, ext string, id SegmentID, cache *lru.Cache[uint64, []byte]) (*segment, error) {
	path := segmentPath(dir, ext, id)
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, segmentFileMode)
	if err != nil {
		return nil, err
	}

	info, err := fd.Stat()
	if err != nil {
		_ = fd.Close()
		return nil, err
	}
	size := info.Size()

	return &segment{
		id:             id,
		path:           path,
		fd:             fd,
		lastBlockIndex: uint32(size / blockSize),
		lastBlockSize:  uint32(size % blockSize),
		header:         make([]byte, chunkHeaderSize),
		cache:          cache,
	}, nil
}

func (seg *segment) Close() error {
	if seg.closed {
		return nil
	}
	seg.closed = true
	return seg.fd.Close()
}

func (seg *segment) Size() int64 {
	return int64(seg.lastBlockIndex)*blockSize + int64(seg.lastBlockSize)
}

func (seg *segment) Sync() error {
	if seg.closed {
		return nil
	}
	return seg.fd.Sync()
}

// appendChunk 把 header + payload 写到 buf
func (seg *segment) appendChunk(buf *bytes.Buffer, data []byte, chunkType ChunkType) {
	binary.LittleEndian.PutUint16(seg.header[4:6], uint16(len(data)))
	seg.header[6] = chunkType

	// crc 覆盖 length + type + payload
	sum := crc32.ChecksumIEEE(seg.header[4:])
	sum = crc32.Update(sum, crc32.IEEETable, data)
	binary.LittleEndian.PutUint32(seg.header[:4], sum)

	buf.Write(seg.header)
	buf.Write(data)
}

// encode 把一条记录编码成一个或多个 chunk 追加到 buf，并推进 lastBlockIndex/lastBlockSize
func (seg *segment) encode(data []byte, buf *bytes.Buffer) *ChunkPosition {
	start := buf.Len()

	padding := uint32(0)
	// block 剩下的空间连 header 都放不下，补 0 换到下一个 block
	if seg.lastBlockSize+chunkHeaderSize >= blockSize {
		size := blockSize - seg.lastBlockSize
		buf.Write(make([]byte, size))
		padding += size
		seg.lastBlockIndex++
		seg.lastBlockSize = 0
	}

	pos := &ChunkPosition{
		SegmentID:   seg.id,
		BlockIndex:  seg.lastBlockIndex,
		ChunkOffset: seg.lastBlockSize,
	}

	dataLen := uint32(len(data))
	if seg.lastBlockSize+chunkHeaderSize+dataLen <= blockSize {
		seg.appendChunk(buf, data, ChunkTypeFull)
		pos.ChunkSize = chunkHeaderSize + dataLen
	} else {
		var (
			left     = dataLen
			used     = seg.lastBlockSize
			chunkNum uint32
		)
		for left > 0 {
			chunkType := ChunkTypeMiddle
			if left == dataLen {
				chunkType = ChunkTypeStart
			}
			free := blockSize - used - chunkHeaderSize
			if free >= left {
				free = left
				chunkType = ChunkTypeEnd
			}

			offset := dataLen - left
			seg.appendChunk(buf, data[offset:offset+free], chunkType)
			chunkNum++
			left -= free
			used = (used + chunkHeaderSize + free) % blockSize
		}
		pos.ChunkSize = chunkNum*chunkHeaderSize + dataLen
	}

	if written := uint32(buf.Len() - start); pos.ChunkSize+padding != written {
		panic(fmt.Sprintf("tinywal: chunk size %d does not match %d encoded bytes", pos.ChunkSize+padding, written))
	}

	seg.lastBlockSize += pos.ChunkSize
	if seg.lastBlockSize >= blockSize {
		seg.lastBlockIndex += seg.lastBlockSize / blockSize
		seg.lastBlockSize %= blockSize
	}
	return pos
}

// Write 追加一条记录；写文件失败时恢复 block 游标
func (seg *segment) Write(data []byte) (pos *ChunkPosition, err error) {
	if seg.closed {
		return nil, ErrClosed
	}

	lastBlockIndex, lastBlockSize := seg.lastBlockIndex, seg.lastBlockSize
	buf := getWriteBuffer()
	defer func() {
		if err != nil {
			seg.lastBlockIndex, seg.lastBlockSize = lastBlockIndex, lastBlockSize
		}
		putWriteBuffer(buf)
	}()

	pos = seg.encode(data, buf)
	if _, err = seg.fd.Write(buf.Bytes()); err != nil {
		return nil, err
	}
	return pos, nil
}

func (seg *segment) cacheKey(blockIndex uint32) uint64 {
	return uint64(seg.id)<<32 | uint64(blockIndex)
}

// readRecord 从 (blockIndex, chunkOffset) 读取一条完整记录，同时返回下一条记录的位置。
// 已经到文件尾部返回 io.EOF。
func (seg *segment) readRecord(blockIndex, chunkOffset uint32) ([]byte, *ChunkPosition, error) {
	if seg.closed {
		return nil, nil, ErrClosed
	}

	var (
		record []byte
		size   = seg.Size()
		buf    = getBlockBuffer()
		next   = &ChunkPosition{SegmentID: seg.id}
	)
	defer putBlockBuffer(buf)

	for {
		blockStart := int64(blockIndex) * blockSize
		curBlockSize := int64(blockSize)
		if blockStart+curBlockSize > size {
			curBlockSize = size - blockStart
		}
		// curBlockSize 可能是负数，同样表示读到了尾部
		if int64(chunkOffset) >= curBlockSize {
			return nil, nil, io.EOF
		}

		var (
			cached []byte
			ok     bool
		)
		if seg.cache != nil {
			cached, ok = seg.cache.Get(seg.cacheKey(blockIndex))
		}
		if ok {
			copy(buf.block, cached)
		} else {
			if _, err := seg.fd.ReadAt(buf.block[:curBlockSize], blockStart); err != nil {
				return nil, nil, err
			}
			// 只缓存写满的 block
			if seg.cache != nil && curBlockSize == blockSize {
				block := make([]byte, blockSize)
				copy(block, buf.block)
				seg.cache.Add(seg.cacheKey(blockIndex), block)
			}
		}

		copy(buf.header, buf.block[chunkOffset:chunkOffset+chunkHeaderSize])
		length := uint32(binary.LittleEndian.Uint16(buf.header[4:6]))
		start := chunkOffset + chunkHeaderSize
		end := start + length
		if int64(end) > curBlockSize {
			return nil, nil, ErrInvalidCRC
		}
		record = append(record, buf.block[start:end]...)

		if crc32.ChecksumIEEE(buf.block[chunkOffset+4:end]) != binary.LittleEndian.Uint32(buf.header[:4]) {
			return nil, nil, ErrInvalidCRC
		}

		chunkType := buf.header[6]
		if chunkType == ChunkTypeFull || chunkType == ChunkTypeEnd {
			next.BlockIndex = blockIndex
			next.ChunkOffset = end
			// 剩余空间放不下 header，写入时已经补了 0
			if end+chunkHeaderSize >= blockSize {
				next.BlockIndex++
				next.ChunkOffset = 0
			}
			break
		}
		blockIndex++
		chunkOffset = 0
	}
	return record, next, nil
}
