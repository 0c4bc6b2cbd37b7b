package tinywal

// segmentStream 按顺序读出一个 segment 中所有记录的 payload
type segmentStream struct {
	wal         *TinyWal
	seg         *segment
	blockIndex  uint32
	chunkOffset uint32
	// 上一条记录中还没交给调用方的部分
	pending []byte
}

func (s *segmentStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	// 空记录没有 payload，继续读下一条
	for len(s.pending) == 0 {
		s.wal.mutex.RLock()
		record, next, err := s.seg.readRecord(s.blockIndex, s.chunkOffset)
		s.wal.mutex.RUnlock()
		if err != nil {
			return 0, err
		}
		s.blockIndex, s.chunkOffset = next.BlockIndex, next.ChunkOffset
		s.pending = record
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Identity returns the segment file path.
func (s *segmentStream) Identity() string {
	return s.seg.path
}
