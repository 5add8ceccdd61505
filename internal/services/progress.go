package services

import "io"

// progressReader reports whole-percent progress as r is consumed.
//
// Callbacks fire only when the percentage changes and never exceed 100.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	last       int
	onProgress func(int)
}

func newProgressReader(r io.Reader, total int64, onProgress func(int)) *progressReader {
	return &progressReader{r: r, total: total, last: -1, onProgress: onProgress}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)

	if p.onProgress != nil && (n > 0 || err == io.EOF) {
		pct := 100
		if p.total > 0 && p.read < p.total {
			pct = int(p.read * 100 / p.total)
		}
		if err == io.EOF {
			pct = 100
		}
		if pct != p.last {
			p.last = pct
			p.onProgress(pct)
		}
	}
	return n, err
}
