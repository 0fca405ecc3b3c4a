/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kvac

import (
	"bytes"
	"encoding/binary"

	math "github.com/IBM/mathlib"

	"github.com/priv-creds/kvac/schnorr"
)

// Canonical fixed-order encodings for the artifacts that travel or rest:
// public parameters, secret keys, credentials and presentations. Every
// field appears exactly once, in declaration order, group elements and
// scalars in the adapter's native form, counts as big-endian uint32.
// Decoding rejects malformed group elements, non-reduced scalars and
// trailing bytes, so each artifact has exactly one byte representation.

type encoder struct {
	buf []byte
}

func (e *encoder) u32(v uint32) {
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], v)
	e.buf = append(e.buf, raw[:]...)
}

func (e *encoder) zr(z *math.Zr) {
	e.buf = append(e.buf, z.Bytes()...)
}

func (e *encoder) g1(p *math.G1) {
	e.buf = append(e.buf, p.Bytes()...)
}

type decoder struct {
	curve *math.Curve
	buf   []byte
	off   int
	g1Len int
}

func newDecoder(curve *math.Curve, raw []byte) *decoder {
	return &decoder{curve: curve, buf: raw, g1Len: len(curve.GenG1.Bytes())}
}

func (d *decoder) next(n int) ([]byte, error) {
	if n < 0 || len(d.buf)-d.off < n {
		return nil, newError(MalformedInput, nil, "encoding truncated at offset %d", d.off)
	}
	raw := d.buf[d.off : d.off+n]
	d.off += n
	return raw, nil
}

func (d *decoder) u32() (uint32, error) {
	raw, err := d.next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(raw), nil
}

func (d *decoder) zr() (*math.Zr, error) {
	raw, err := d.next(d.curve.ScalarByteSize)
	if err != nil {
		return nil, err
	}
	z := d.curve.NewZrFromBytes(raw)
	// a scalar has one canonical encoding, its reduced form
	if !bytes.Equal(z.Bytes(), raw) {
		return nil, newError(MalformedInput, nil, "non-canonical scalar encoding at offset %d", d.off-d.curve.ScalarByteSize)
	}
	return z, nil
}

func (d *decoder) g1() (*math.G1, error) {
	raw, err := d.next(d.g1Len)
	if err != nil {
		return nil, err
	}
	p, err := d.curve.NewG1FromBytes(raw)
	if err != nil {
		return nil, newError(MalformedInput, err, "malformed group element at offset %d", d.off-d.g1Len)
	}
	return p, nil
}

// done rejects trailing bytes once an artifact is fully read.
func (d *decoder) done() error {
	if d.off != len(d.buf) {
		return newError(MalformedInput, nil, "%d trailing bytes after encoding", len(d.buf)-d.off)
	}
	return nil
}

func (e *encoder) proof(p *schnorr.Proof) {
	e.u32(uint32(len(p.S)))
	e.zr(p.Challenge)
	for _, s := range p.S {
		e.zr(s)
	}
}

func (d *decoder) proof() (*schnorr.Proof, error) {
	count, err := d.u32()
	if err != nil {
		return nil, err
	}
	if int(count) > len(d.buf)/d.curve.ScalarByteSize {
		return nil, newError(MalformedInput, nil, "proof claims %d s-values, encoding too short", count)
	}
	p := &schnorr.Proof{S: make([]*math.Zr, count)}
	if p.Challenge, err = d.zr(); err != nil {
		return nil, err
	}
	for i := range p.S {
		if p.S[i], err = d.zr(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Bytes encodes the public parameters. The parameter hash is not
// serialized; decoding recomputes it.
func (pp *PublicParams) Bytes() []byte {
	e := &encoder{}
	e.u32(uint32(pp.CurveID))
	e.u32(uint32(len(pp.HAttrs)))
	e.g1(pp.HRand)
	for _, h := range pp.HAttrs {
		e.g1(h)
	}
	e.g1(pp.CX0)
	e.proof(pp.Proof)
	return e.buf
}

// NewPublicParamsFromBytes decodes public parameters and validates them,
// including the issuer's self-proof.
func NewPublicParamsFromBytes(raw []byte) (*PublicParams, error) {
	if len(raw) < 8 {
		return nil, newError(MalformedInput, nil, "encoding truncated")
	}
	cid := binary.BigEndian.Uint32(raw)
	if int(cid) >= len(math.Curves) {
		return nil, newError(MalformedInput, nil, "unknown curve %d", cid)
	}
	d := newDecoder(math.Curves[cid], raw)
	d.off = 4

	arity, err := d.u32()
	if err != nil {
		return nil, err
	}
	if int(arity) > len(raw)/d.g1Len {
		return nil, newError(MalformedInput, nil, "parameters claim %d attribute bases, encoding too short", arity)
	}

	pp := &PublicParams{CurveID: math.CurveID(cid), HAttrs: make([]*math.G1, arity)}
	if pp.HRand, err = d.g1(); err != nil {
		return nil, err
	}
	for i := range pp.HAttrs {
		if pp.HAttrs[i], err = d.g1(); err != nil {
			return nil, err
		}
	}
	if pp.CX0, err = d.g1(); err != nil {
		return nil, err
	}
	if pp.Proof, err = d.proof(); err != nil {
		return nil, err
	}
	if err := d.done(); err != nil {
		return nil, err
	}

	pp.Hash = pp.computeHash()
	if err := pp.Check(); err != nil {
		return nil, err
	}
	return pp, nil
}

// Bytes encodes the secret key together with its public parameters.
func (sk *SecretKey) Bytes() []byte {
	params := sk.Params.Bytes()
	e := &encoder{buf: make([]byte, 0, len(params)+4+2*sk.Params.curve().ScalarByteSize)}
	e.u32(uint32(len(params)))
	e.buf = append(e.buf, params...)
	e.zr(sk.X0)
	e.zr(sk.R0)
	return e.buf
}

func NewSecretKeyFromBytes(raw []byte) (*SecretKey, error) {
	if len(raw) < 4 {
		return nil, newError(MalformedInput, nil, "encoding truncated")
	}
	paramsLen := binary.BigEndian.Uint32(raw)
	if int(paramsLen) > len(raw)-4 {
		return nil, newError(MalformedInput, nil, "encoding truncated")
	}
	pp, err := NewPublicParamsFromBytes(raw[4 : 4+paramsLen])
	if err != nil {
		return nil, err
	}

	d := newDecoder(pp.curve(), raw)
	d.off = 4 + int(paramsLen)
	sk := &SecretKey{Params: pp}
	if sk.X0, err = d.zr(); err != nil {
		return nil, err
	}
	if sk.R0, err = d.zr(); err != nil {
		return nil, err
	}
	if err := d.done(); err != nil {
		return nil, err
	}

	// the key must open the commitment carried by the parameters
	if !pp.curve().GenG1.Mul2(sk.X0, pp.HRand, sk.R0).Equals(pp.CX0) {
		return nil, newError(KeyMismatch, nil, "key scalars do not open the parameter commitment")
	}
	return sk, nil
}

// Bytes encodes the credential.
func (cred *Credential) Bytes() []byte {
	e := &encoder{}
	e.g1(cred.A)
	e.g1(cred.B)
	e.zr(cred.E)
	e.zr(cred.S)
	e.u32(uint32(len(cred.Attrs)))
	for _, a := range cred.Attrs {
		e.zr(a)
	}
	return e.buf
}

// NewCredentialFromBytes decodes a credential and checks its internal
// consistency against the parameters.
func NewCredentialFromBytes(pp *PublicParams, raw []byte) (*Credential, error) {
	d := newDecoder(pp.curve(), raw)
	cred := &Credential{}
	var err error
	if cred.A, err = d.g1(); err != nil {
		return nil, err
	}
	if cred.B, err = d.g1(); err != nil {
		return nil, err
	}
	if cred.E, err = d.zr(); err != nil {
		return nil, err
	}
	if cred.S, err = d.zr(); err != nil {
		return nil, err
	}
	count, err := d.u32()
	if err != nil {
		return nil, err
	}
	if int(count) > len(raw)/pp.curve().ScalarByteSize {
		return nil, newError(MalformedInput, nil, "credential claims %d attributes, encoding too short", count)
	}
	cred.Attrs = make([]*math.Zr, count)
	for i := range cred.Attrs {
		if cred.Attrs[i], err = d.zr(); err != nil {
			return nil, err
		}
	}
	if err := d.done(); err != nil {
		return nil, err
	}
	if err := cred.Ver(pp); err != nil {
		return nil, err
	}
	return cred, nil
}

// Bytes encodes the presentation.
func (pres *Presentation) Bytes() []byte {
	e := &encoder{}
	e.g1(pres.APrime)
	e.g1(pres.ABar)
	e.g1(pres.BPrime)
	e.u32(uint32(len(pres.Nyms)))
	for _, nym := range pres.Nyms {
		e.u32(uint32(nym.Index))
		e.g1(nym.Nym)
	}
	e.zr(pres.Nonce)
	e.proof(pres.Proof)
	return e.buf
}

// NewPresentationFromBytes decodes a presentation. Proof verification is
// left to VerifyPresentation; only structure is checked here.
func NewPresentationFromBytes(pp *PublicParams, raw []byte) (*Presentation, error) {
	d := newDecoder(pp.curve(), raw)
	pres := &Presentation{}
	var err error
	if pres.APrime, err = d.g1(); err != nil {
		return nil, err
	}
	if pres.ABar, err = d.g1(); err != nil {
		return nil, err
	}
	if pres.BPrime, err = d.g1(); err != nil {
		return nil, err
	}
	count, err := d.u32()
	if err != nil {
		return nil, err
	}
	if int(count) > len(raw)/d.g1Len {
		return nil, newError(MalformedInput, nil, "presentation claims %d attribute commitments, encoding too short", count)
	}
	pres.Nyms = make([]*AttrNym, count)
	for i := range pres.Nyms {
		index, err := d.u32()
		if err != nil {
			return nil, err
		}
		nym, err := d.g1()
		if err != nil {
			return nil, err
		}
		pres.Nyms[i] = &AttrNym{Index: int(index), Nym: nym}
	}
	if pres.Nonce, err = d.zr(); err != nil {
		return nil, err
	}
	if pres.Proof, err = d.proof(); err != nil {
		return nil, err
	}
	if err := d.done(); err != nil {
		return nil, err
	}
	return pres, nil
}
