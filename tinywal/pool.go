package tinywal

import (
	"bytes"
	"sync"
)

// 写入时拼 chunk 用的 buffer
var writeBufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

func getWriteBuffer() *bytes.Buffer {
	return writeBufferPool.Get().(*bytes.Buffer)
}

func putWriteBuffer(buf *bytes.Buffer) {
	buf.Reset()
	writeBufferPool.Put(buf)
}

// 读取时每次都要一个完整 block
var blockPool = sync.Pool{
	New: func() any {
		return &blockBuffer{
			block:  make([]byte, blockSize),
			header: make([]byte, chunkHeaderSize),
		}
	},
}

type blockBuffer struct {
	block  []byte
	header []byte
}

func getBlockBuffer() *blockBuffer {
	return blockPool.Get().(*blockBuffer)
}

func putBlockBuffer(buf *blockBuffer) {
	blockPool.Put(buf)
}
