package tinywal

type ChunkType = byte

// 一条记录放不进当前 block 的剩余空间时，拆成 start/middle.../end 多个 chunk
const (
	ChunkTypeFull ChunkType = iota
	ChunkTypeStart
	ChunkTypeMiddle
	ChunkTypeEnd
)

// ChunkPosition 记录在 wal 中的位置
type ChunkPosition struct {
	SegmentID   SegmentID
	BlockIndex  uint32
	ChunkOffset uint32
	// 记录占用的总字节数（所有 chunk header + payload）
	ChunkSize uint32
}
