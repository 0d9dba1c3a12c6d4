package transfer

import "fmt"

// receiveBuffer holds chunks in arrival order with a running byte total.
type receiveBuffer struct {
	chunks [][]byte
	total  int64
}

func (b *receiveBuffer) append(chunk []byte) {
	b.chunks = append(b.chunks, chunk)
	b.total += int64(len(chunk))
}

func (b *receiveBuffer) received() int64 {
	return b.total
}

func (b *receiveBuffer) count() int {
	return len(b.chunks)
}

// assemble concatenates exactly size bytes. Chunks past the budget are
// trimmed or skipped, so over-delivery never leaks into the result.
func (b *receiveBuffer) assemble(size int64) ([]byte, error) {
	if b.total < size {
		return nil, fmt.Errorf("%w: have %d of %d bytes", ErrAssembly, b.total, size)
	}

	out := make([]byte, 0, size)
	budget := size
	for _, chunk := range b.chunks {
		if budget == 0 {
			break
		}
		if int64(len(chunk)) > budget {
			chunk = chunk[:budget]
		}
		out = append(out, chunk...)
		budget -= int64(len(chunk))
	}

	if int64(len(out)) != size {
		return nil, fmt.Errorf("%w: assembled %d of %d bytes", ErrAssembly, len(out), size)
	}
	return out, nil
}

func (b *receiveBuffer) reset() {
	b.chunks = nil
	b.total = 0
}
