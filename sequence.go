package catreader

import "io"

// Sequence 按顺序产出 source。
//
// Next 返回 io.EOF 表示没有更多的 source；返回 nil source（err 为 nil）的位置会被跳过。
// 其它错误原样返回给 Reader.Read 的调用方。
type Sequence interface {
	Next() (io.Reader, error)
}

// SequenceFunc adapts a function to a Sequence.
type SequenceFunc func() (io.Reader, error)

func (f SequenceFunc) Next() (io.Reader, error) {
	return f()
}

// Readers returns a Sequence over a fixed list of readers.
func Readers(rs ...io.Reader) Sequence {
	// 拷贝一份，Next 会把交出去的位置清空
	return &sliceSequence{readers: append([]io.Reader(nil), rs...)}
}

type sliceSequence struct {
	readers  []io.Reader
	progress int
}

func (s *sliceSequence) Next() (io.Reader, error) {
	if s.progress >= len(s.readers) {
		return nil, io.EOF
	}
	r := s.readers[s.progress]
	s.readers[s.progress] = nil
	s.progress++
	return r, nil
}
