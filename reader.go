package catreader

import (
	"fmt"
	"io"
)

// Reader 把一个 Sequence 产出的多个 source 拼接成一个连续的字节流。
//
// 同一时刻只持有一个 source：当前 source 读完（io.EOF 或者读到 0 字节）之后，
// 先释放它（实现了 io.Closer 就调用 Close），再从 Sequence 中取下一个。
// 全部读完后 Read 一直返回 0, io.EOF。
//
// Reader 不是并发安全的。
type Reader struct {
	seq     Sequence
	curr    io.Reader // 当前 source
	drained bool      // curr 已经返回过 io.EOF（和数据一起返回的），下一次 Read 时释放
	done    bool      // seq 已经没有更多 source
	seqDone bool      // seq 已经 Close
	closed  bool
}

// New 创建 Reader。构造时不会调用 seq.Next，第一个 source 在第一次 Read 时才获取。
func New(seq Sequence) *Reader {
	return &Reader{seq: seq}
}

// Read implements io.Reader.
//
// Errors from a source are returned unchanged and leave that source current, so a
// retry reads the same source again.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	// 空 buffer 不触发任何 source 的获取
	if len(p) == 0 {
		return 0, nil
	}

	for {
		if r.curr == nil || r.drained {
			ok, err := r.advance()
			if err != nil {
				return 0, err
			}
			if !ok {
				return 0, io.EOF
			}
		}

		n, err := r.curr.Read(p)
		switch {
		case err == io.EOF:
			if n > 0 {
				// 数据先交给调用方，source 保持为 current 以便 Identity 仍然指向它
				r.drained = true
				return n, nil
			}
		case err != nil:
			return n, err
		case n > 0:
			return n, nil
		}
		// 0 字节：当前 source 已耗尽，继续取下一个
		r.drained = true
	}
}

// advance releases the current source and pulls the next non-nil one.
// It reports false once the sequence is exhausted.
func (r *Reader) advance() (bool, error) {
	if err := r.release(); err != nil {
		return false, err
	}
	for !r.done {
		next, err := r.seq.Next()
		if err == io.EOF {
			r.done = true
			// seq 用完立即释放（例如 kvseq 的只读事务），不等调用方 Close
			if err := r.closeSeq(); err != nil {
				return false, err
			}
			break
		}
		if err != nil {
			return false, err
		}
		if next == nil {
			continue
		}
		r.curr = next
		return true, nil
	}
	return false, nil
}

func (r *Reader) release() error {
	curr := r.curr
	r.curr = nil
	r.drained = false
	if c, ok := curr.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Current returns the source currently held, or nil.
func (r *Reader) Current() io.Reader {
	return r.curr
}

// Identity returns the identity of the source that produced the most recent bytes.
func (r *Reader) Identity() (string, bool) {
	if r.curr == nil {
		return "", false
	}
	return identityOf(r.curr)
}

// Skip 放弃当前 source，直接切换到下一个（例如当前 source 一直读失败）。
// 返回 false 表示已经没有 source 了。
func (r *Reader) Skip() (bool, error) {
	if r.closed {
		return false, ErrClosed
	}
	return r.advance()
}

// Close releases the current source and the sequence.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.done = true

	err := r.release()
	if cerr := r.closeSeq(); err == nil {
		err = cerr
	}
	return err
}

func (r *Reader) closeSeq() error {
	if r.seqDone {
		return nil
	}
	r.seqDone = true
	if c, ok := r.seq.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *Reader) state() string {
	switch {
	case r.closed:
		return "closed"
	case r.curr != nil:
		return "active"
	case r.done:
		return "done"
	default:
		return "idle"
	}
}

func (r *Reader) String() string {
	if id, ok := r.Identity(); ok {
		return fmt.Sprintf("catreader.Reader{state: %s, current: %q}", r.state(), id)
	}
	return fmt.Sprintf("catreader.Reader{state: %s}", r.state())
}
