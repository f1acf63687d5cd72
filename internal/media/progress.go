package media

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"io"
)

// progressReader publishes whole-percent steps while the body is read.
// A seek back to the start (the SDK re-reads for checksums) resets it.
type progressReader struct {
	ctx     context.Context
	r       io.ReadSeeker
	name    string
	size    int64
	read    int64
	last    int
	pub     ProgressPublisher
	channel string
}

const progressStep = 5

func newProgressReader(ctx context.Context, f File, pub ProgressPublisher, channel string) *progressReader {
	return &progressReader{ctx: ctx, r: f.Body, name: f.Name, size: f.Size, last: -1, pub: pub, channel: channel}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.size > 0 {
		pct := int(p.read * 100 / p.size)
		if pct > 100 {
			pct = 100
		}
		if pct == 100 || pct-p.last >= progressStep {
			if pct != p.last {
				p.last = pct
				p.pub.Publish(p.ctx, p.channel, redisx.ProgressEvent{File: p.name, Percent: pct})
			}
		}
	}
	return n, err
}

func (p *progressReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := p.r.Seek(offset, whence)
	if err == nil {
		p.read = pos
		if pos == 0 {
			p.last = -1
		}
	}
	return pos, err
}
