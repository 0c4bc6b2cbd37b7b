package tinywal

const (
	B  = 1
	KB = 1024 * B
	MB = 1024 * KB
	GB = 1024 * MB
)

const (
	// 第一个 segment 的编号
	firstSegmentID  = 1
	segmentFileMode = 0644
)

const (
	// segment 文件按 32KB 切分成 block
	blockSize = 32 * KB
	// chunk header: crc(4) + length(2) + type(1)
	chunkHeaderSize = 7
)
