package assemble

// Layout consumes raw bytes as they arrive from the transport and packs
// them into a Ring, tracking whatever sub-line state its wire format needs
// across calls (reads may split a sub-line at any byte boundary).
type Layout interface {
	Feed(r *Ring, data []byte)
}

// FlatLayout passes bytes straight through (spec.md §4.E FLAT: "Bytes
// arrive already in frame-format order").
type FlatLayout struct{}

func (FlatLayout) Feed(r *Ring, data []byte) { r.PackFlat(data) }

// SeqRGBLayout handles spec.md §4.E SEQ_RGB: "Each logical line arrives as
// three sub-lines R, G, B back-to-back". chanIdx/posInChan carry the
// round-robin position across Feed calls.
type SeqRGBLayout struct {
	pixelsPerLine int
	chanIdx       int
	posInChan     int
}

func NewSeqRGBLayout(pixelsPerLine int) *SeqRGBLayout {
	return &SeqRGBLayout{pixelsPerLine: pixelsPerLine}
}

func (l *SeqRGBLayout) Feed(r *Ring, data []byte) {
	for _, b := range data {
		r.packTriplet(l.chanIdx, b)
		l.posInChan++
		if l.posInChan >= l.pixelsPerLine {
			l.posInChan = 0
			l.chanIdx = (l.chanIdx + 1) % 3
		}
	}
}

// channelFromLetter maps the GOOFY_RGB header's channel letter to a ring
// channel index.
func channelFromLetter(c byte) (int, bool) {
	switch c {
	case 'R', 'r':
		return 0, true
	case 'G', 'g':
		return 1, true
	case 'B', 'b':
		return 2, true
	default:
		return 0, false
	}
}

// GoofyRGBLayout handles spec.md §4.E GOOFY_RGB: "Each sub-line carries a
// 2-byte header [line-index, channel-letter]; the letter is authoritative
// (the channel order is not guaranteed sequential)".
type GoofyRGBLayout struct {
	pixelsPerLine int

	pending    [2]byte // partial header bytes carried across Feed calls
	pendingLen int

	inSubline bool
	chanIdx   int
	posInChan int
}

func NewGoofyRGBLayout(pixelsPerLine int) *GoofyRGBLayout {
	return &GoofyRGBLayout{pixelsPerLine: pixelsPerLine}
}

func (l *GoofyRGBLayout) Feed(r *Ring, data []byte) {
	i := 0
	for i < len(data) {
		if !l.inSubline {
			for l.pendingLen < 2 && i < len(data) {
				l.pending[l.pendingLen] = data[i]
				l.pendingLen++
				i++
			}
			if l.pendingLen < 2 {
				return // header still incomplete, wait for next Feed
			}
			ch, ok := channelFromLetter(l.pending[1])
			if !ok {
				ch = 0
			}
			l.chanIdx = ch
			l.posInChan = 0
			l.pendingLen = 0
			l.inSubline = true
			continue
		}

		r.packTriplet(l.chanIdx, data[i])
		i++
		l.posInChan++
		if l.posInChan >= l.pixelsPerLine {
			l.inSubline = false
		}
	}
}

// Seq2R2G2BLayout handles spec.md §4.E SEQ_2R2G2B: "6-byte groups encode
// two pixels RRGGBB; unpack into two RGB triplets."
type Seq2R2G2BLayout struct {
	pending    [6]byte
	pendingLen int
}

func NewSeq2R2G2BLayout() *Seq2R2G2BLayout { return &Seq2R2G2BLayout{} }

func (l *Seq2R2G2BLayout) Feed(r *Ring, data []byte) {
	i := 0
	for i < len(data) {
		for l.pendingLen < 6 && i < len(data) {
			l.pending[l.pendingLen] = data[i]
			l.pendingLen++
			i++
		}
		if l.pendingLen < 6 {
			return
		}
		g := l.pending
		// group layout: r1 r2 g1 g2 b1 b2
		r.packTriplet(0, g[0])
		r.packTriplet(1, g[2])
		r.packTriplet(2, g[4])
		r.packTriplet(0, g[1])
		r.packTriplet(1, g[3])
		r.packTriplet(2, g[5])
		l.pendingLen = 0
	}
}

// ScaleChannel implements spec.md §4.E's expanded-resolution fractional
// interpolation for one channel's worth of samples: "for each output
// sample compute (n1, n2, x1, x2)... the output is the weighted average
// (src[n1]*(n2-x1) + src[n2]*(x2-n2)) / aspect when x2 != n2, else
// src[n1]".
func ScaleChannel(src []byte, dstN int) []byte {
	srcN := len(src)
	if dstN <= 0 || srcN == 0 {
		return nil
	}
	out := make([]byte, dstN)
	aspect := float64(srcN) / float64(dstN)
	for i := 0; i < dstN; i++ {
		x1 := float64(i) * aspect
		x2 := float64(i+1) * aspect
		n1 := int(x1)
		n2 := int(x2)
		if n1 >= srcN {
			n1 = srcN - 1
		}
		if n2 >= srcN {
			n2 = srcN - 1
		}
		var v float64
		if float64(n2) == x2 || n2 == n1 {
			v = float64(src[n1])
		} else {
			v = (float64(src[n1])*(float64(n2)-x1) + float64(src[n2])*(x2-float64(n2))) / aspect
		}
		out[i] = clampByte(v)
	}
	return out
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 0.5)
}

// ScaleLineartBits applies the same interpolation over a bit-packed
// lineart source, thresholding the weighted sum at 0.5 per spec.md §4.E
// ("For lineart a threshold at 0.5 is applied to the weighted sum").
// srcPixels is the number of valid bits in src (src may be padded to a
// byte boundary); the result is packed MSB-first the same way.
func ScaleLineartBits(src []byte, srcPixels, dstPixels int) []byte {
	if dstPixels <= 0 || srcPixels <= 0 {
		return nil
	}
	bit := func(i int) float64 {
		byteIdx := i / 8
		bitIdx := 7 - i%8
		if byteIdx >= len(src) {
			return 0
		}
		if src[byteIdx]&(1<<uint(bitIdx)) != 0 {
			return 1
		}
		return 0
	}

	out := make([]byte, (dstPixels+7)/8)
	aspect := float64(srcPixels) / float64(dstPixels)
	for i := 0; i < dstPixels; i++ {
		x1 := float64(i) * aspect
		x2 := float64(i+1) * aspect
		n1 := int(x1)
		n2 := int(x2)
		if n1 >= srcPixels {
			n1 = srcPixels - 1
		}
		if n2 >= srcPixels {
			n2 = srcPixels - 1
		}
		var v float64
		if float64(n2) == x2 || n2 == n1 {
			v = bit(n1)
		} else {
			v = (bit(n1)*(float64(n2)-x1) + bit(n2)*(x2-float64(n2))) / aspect
		}
		if v >= 0.5 {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}
