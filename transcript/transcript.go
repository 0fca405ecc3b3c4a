/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transcript

import (
	"encoding/binary"

	math "github.com/IBM/mathlib"
)

// A Transcript accumulates the ordered, labeled statement elements of a
// zero-knowledge protocol and derives Fiat-Shamir challenges from them.
// Every element is framed as len(label) || label || len(data) || data so
// that no two distinct append sequences hash to the same byte string.
// A transcript lives for a single proof construction or verification and
// is not reusable across protocols: the protocol label passed to New
// domain-separates challenges of different proof types.
type Transcript struct {
	curve *math.Curve
	buf   []byte
}

func New(curve *math.Curve, protocolLabel string) *Transcript {
	t := &Transcript{curve: curve}
	t.AppendBytes("protocol", []byte(protocolLabel))
	return t
}

// AppendBytes adds a labeled byte string to the transcript.
func (t *Transcript) AppendBytes(label string, data []byte) {
	var frame [4]byte
	binary.BigEndian.PutUint32(frame[:], uint32(len(label)))
	t.buf = append(t.buf, frame[:]...)
	t.buf = append(t.buf, label...)
	binary.BigEndian.PutUint32(frame[:], uint32(len(data)))
	t.buf = append(t.buf, frame[:]...)
	t.buf = append(t.buf, data...)
}

// AppendG1 adds a labeled group element.
func (t *Transcript) AppendG1(label string, p *math.G1) {
	t.AppendBytes(label, p.Bytes())
}

// AppendZr adds a labeled scalar.
func (t *Transcript) AppendZr(label string, z *math.Zr) {
	t.AppendBytes(label, z.Bytes())
}

// ChallengeZr hashes the transcript so far into a challenge scalar. The
// challenge itself is appended back into the transcript, so subsequent
// challenges depend on all earlier ones.
func (t *Transcript) ChallengeZr(label string) *math.Zr {
	t.AppendBytes("challenge", []byte(label))
	c := t.curve.HashToZr(t.buf)
	t.AppendZr(label, c)
	return c
}
