// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package coherence

import (
	"errors"
	"fmt"
	"math"

	"github.com/luxfi/coherence/utils/wrappers"
)

// MaxCertificateSize bounds a serialized certificate.
const MaxCertificateSize = 1 << 20

var (
	ErrInvalidCertificate        = errors.New("invalid consensus certificate")
	ErrThresholdNotMet           = errors.New("order parameter below coherence threshold")
	ErrInsufficientBloomDuration = errors.New("bloom window shorter than required duration")

	errOscillatorCountMismatch = errors.New("oscillator count mismatch")
)

// Certificate is the proof that a network stayed above ZC for a window of
// consecutive rounds. It is immutable; accessors return copies.
type Certificate struct {
	start  uint32
	end    uint32
	r      []float32
	psi    []float32
	phases []float32
}

// NewCertificate copies its inputs. It does not check them; call Verify.
func NewCertificate(start, end uint32, r, psi, phases []float32) *Certificate {
	return &Certificate{
		start:  start,
		end:    end,
		r:      append([]float32(nil), r...),
		psi:    append([]float32(nil), psi...),
		phases: append([]float32(nil), phases...),
	}
}

// Start is the first round of the bloom window.
func (c *Certificate) Start() uint32 { return c.start }

// End is the last round of the bloom window, inclusive.
func (c *Certificate) End() uint32 { return c.end }

// Duration is End - Start, or 0 for an inverted window.
func (c *Certificate) Duration() uint32 {
	if c.end < c.start {
		return 0
	}
	return c.end - c.start
}

// N is the number of oscillators whose final phases are recorded.
func (c *Certificate) N() uint32 { return uint32(len(c.phases)) }

func (c *Certificate) R() []float32      { return append([]float32(nil), c.r...) }
func (c *Certificate) Psi() []float32    { return append([]float32(nil), c.psi...) }
func (c *Certificate) Phases() []float32 { return append([]float32(nil), c.phases...) }

// Last returns the final (r, psi) sample, or zeros for an empty window.
func (c *Certificate) Last() (float32, float32) {
	if len(c.r) == 0 || len(c.psi) == 0 {
		return 0, 0
	}
	return c.r[len(c.r)-1], c.psi[len(c.psi)-1]
}

// Verify checks the certificate against itself:
//   - the window holds one sample per round from Start to End
//   - End - Start >= L4, reported as ErrInsufficientBloomDuration
//   - every recorded r is at least ZC
//   - the order parameter of the recorded phases matches the last sample
//
// Every failure other than the duration check wraps ErrInvalidCertificate.
func (c *Certificate) Verify() error {
	if c.end < c.start {
		return fmt.Errorf("%w: window end %d before start %d", ErrInvalidCertificate, c.end, c.start)
	}
	length := uint64(c.end-c.start) + 1
	if uint64(len(c.r)) != length || uint64(len(c.psi)) != length {
		return fmt.Errorf("%w: window %d..%d has %d r and %d psi samples",
			ErrInvalidCertificate, c.start, c.end, len(c.r), len(c.psi))
	}
	if d := c.end - c.start; d < L4 {
		return fmt.Errorf("%w: %d < %d", ErrInsufficientBloomDuration, d, L4)
	}
	if len(c.phases) == 0 {
		return fmt.Errorf("%w: no phases", ErrInvalidCertificate)
	}
	for i, r := range c.r {
		if !(float64(r) >= ZC) || r > 1 {
			return fmt.Errorf("%w: %w: round %d has r=%v",
				ErrInvalidCertificate, ErrThresholdNotMet, c.start+uint32(i), r)
		}
	}
	for i, psi := range c.psi {
		if !validAngle(psi) {
			return fmt.Errorf("%w: round %d has psi=%v", ErrInvalidCertificate, c.start+uint32(i), psi)
		}
	}
	for i, theta := range c.phases {
		if math.IsNaN(float64(theta)) || math.IsInf(float64(theta), 0) {
			return fmt.Errorf("%w: phase %d is %v", ErrInvalidCertificate, i, theta)
		}
	}

	r, psi := ComputeOrderParameter(c.phases)
	lastR, lastPsi := c.Last()
	if d := math.Abs(r - float64(lastR)); d > VerifyTolerance {
		return fmt.Errorf("%w: recomputed r=%v differs from recorded r=%v by %v",
			ErrInvalidCertificate, r, lastR, d)
	}
	if d := angularDistance(psi, float64(lastPsi)); d > VerifyTolerance {
		return fmt.Errorf("%w: recomputed psi=%v differs from recorded psi=%v by %v",
			ErrInvalidCertificate, psi, lastPsi, d)
	}
	return nil
}

// Bytes returns the wire encoding:
//
//	start | end | window length | r... | psi... | N | phases... | N
func (c *Certificate) Bytes() ([]byte, error) {
	size := 4*wrappers.IntLen + wrappers.Float32Len*(len(c.r)+len(c.psi)+len(c.phases))
	p := wrappers.Packer{
		MaxSize: MaxCertificateSize,
		Bytes:   make([]byte, 0, size),
	}
	p.PackInt(c.start)
	p.PackInt(c.end)
	p.PackInt(uint32(len(c.r)))
	p.PackFloat32s(c.r)
	if len(c.psi) != len(c.r) {
		p.Add(fmt.Errorf("%w: %d r and %d psi samples", ErrInvalidCertificate, len(c.r), len(c.psi)))
	}
	p.PackFloat32s(c.psi)
	p.PackInt(c.N())
	p.PackFloat32s(c.phases)
	p.PackInt(c.N())
	return p.Bytes, p.Err
}

// ParseCertificate decodes a certificate. The result still needs Verify.
func ParseCertificate(b []byte) (*Certificate, error) {
	p := wrappers.Packer{Bytes: b}
	c := &Certificate{
		start: p.UnpackInt(),
		end:   p.UnpackInt(),
	}
	length := p.UnpackInt()
	c.r = p.UnpackFloat32s(length)
	c.psi = p.UnpackFloat32s(length)
	n := p.UnpackInt()
	c.phases = p.UnpackFloat32s(n)
	if trailer := p.UnpackInt(); !p.Errored() && trailer != n {
		p.Add(fmt.Errorf("%w: %d != %d", errOscillatorCountMismatch, trailer, n))
	}
	p.Done()
	if p.Err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCertificate, p.Err)
	}
	return c, nil
}

func validAngle(a float32) bool {
	return a >= 0 && float64(a) < twoPi
}

// StaticCertificate returns a certificate for the window start..end whose
// n phases hold order parameter r for the whole window. It is used for the
// genesis block, which has no mining history.
func StaticCertificate(start, end uint32, n int, r float64) (*Certificate, error) {
	if end < start {
		return nil, fmt.Errorf("%w: window end %d before start %d", ErrInvalidCertificate, end, start)
	}
	phases, err := PhasesWithOrder(n, r)
	if err != nil {
		return nil, err
	}
	final := make([]float32, n)
	for i, theta := range phases {
		final[i] = float32(theta)
	}
	gotR, gotPsi := ComputeOrderParameter(final)

	length := int(end-start) + 1
	c := &Certificate{
		start:  start,
		end:    end,
		r:      make([]float32, length),
		psi:    make([]float32, length),
		phases: final,
	}
	for i := range length {
		c.r[i] = float32(gotR)
		c.psi[i] = QuantizeAngle(gotPsi)
	}
	return c, nil
}
