package downloader

import "io"

type progressWriter struct {
	w     io.Writer
	total int64
	fn    func(done int64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if n > 0 {
		p.total += int64(n)
		if p.fn != nil {
			p.fn(p.total)
		}
	}
	return n, err
}

// copyWithProgress copies src to dst, reporting the running byte count.
func copyWithProgress(dst io.Writer, src io.Reader, progress func(done int64)) (int64, error) {
	return io.Copy(&progressWriter{w: dst, fn: progress}, src)
}
