/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kvac

import (
	"bytes"
	"crypto/sha256"
	"io"

	math "github.com/IBM/mathlib"

	"github.com/priv-creds/kvac/schnorr"
	"github.com/priv-creds/kvac/transcript"
)

// PublicParams are the per-issuer public parameters: one generator per
// attribute slot, a blinding generator, and a Pedersen commitment CX0 to
// the MAC key scalar. CX0 lets the issuer prove correct MAC computation
// at issuance without revealing the key. The parameters carry a
// self-proof of knowledge of the CX0 opening, checked via Check.
type PublicParams struct {
	CurveID math.CurveID
	// HRand is the base for blinding scalars.
	HRand *math.G1
	// HAttrs holds one base per attribute slot.
	HAttrs []*math.G1
	// CX0 = g1^x0 * HRand^r0 commits to the MAC key.
	CX0 *math.G1
	// Proof is the issuer's proof of knowledge of the CX0 opening.
	Proof *schnorr.Proof
	// Hash binds the parameters into every protocol transcript.
	Hash []byte
}

// SecretKey is the issuance and verification capability. It is held by
// the issuer authority and by every verifier; it never travels to
// holders.
type SecretKey struct {
	// X0 is the MAC key scalar, R0 the blinding of its commitment.
	X0 *math.Zr
	R0 *math.Zr

	Params *PublicParams
}

func (pp *PublicParams) curve() *math.Curve {
	return math.Curves[pp.CurveID]
}

// Arity returns the number of attribute slots.
func (pp *PublicParams) Arity() int {
	return len(pp.HAttrs)
}

func (pp *PublicParams) computeHash() []byte {
	curve := pp.curve()
	raw := make([]byte, 8+(len(pp.HAttrs)+2)*len(curve.GenG1.Bytes()))
	index := 0
	index = appendBytesUint32(raw, index, uint32(pp.CurveID))
	index = appendBytesUint32(raw, index, uint32(len(pp.HAttrs)))
	index = appendBytesG1(raw, index, pp.HRand)
	for _, h := range pp.HAttrs {
		index = appendBytesG1(raw, index, h)
	}
	appendBytesG1(raw, index, pp.CX0)
	digest := sha256.Sum256(raw)
	return digest[:]
}

// keyStatement is the linear relation CX0 = g1^x0 * HRand^r0 with x0 at
// witness index 0 and r0 at index 1. The issuance proof extends this
// system with the MAC correctness equation sharing witness x0.
func (pp *PublicParams) keyStatement() schnorr.Statement {
	return schnorr.Statement{
		Label:  "key-commitment",
		Target: pp.CX0,
		Terms: []schnorr.Term{
			{Base: pp.curve().GenG1, Witness: 0},
			{Base: pp.HRand, Witness: 1},
		},
	}
}

func (pp *PublicParams) paramsTranscript() *transcript.Transcript {
	tr := transcript.New(pp.curve(), paramsLabel)
	tr.AppendBytes("params-hash", pp.Hash)
	return tr
}

// Check validates the structure of the parameters and the issuer's
// self-proof. Holders run it once on received parameters.
func (pp *PublicParams) Check() error {
	if pp.HRand == nil || pp.CX0 == nil || len(pp.HAttrs) == 0 {
		return newError(MalformedInput, nil, "public parameters incomplete")
	}
	if int(pp.CurveID) < 0 || int(pp.CurveID) >= len(math.Curves) {
		return newError(MalformedInput, nil, "unknown curve %d", pp.CurveID)
	}
	if pp.HRand.IsInfinity() {
		return newError(MalformedInput, nil, "blinding base is the identity")
	}
	for i, h := range pp.HAttrs {
		if h == nil || h.IsInfinity() {
			return newError(MalformedInput, nil, "attribute base %d is missing or the identity", i)
		}
	}
	if !bytes.Equal(pp.Hash, pp.computeHash()) {
		return newError(MalformedInput, nil, "parameter hash does not match parameters")
	}
	if err := schnorr.Verify(pp.curve(), pp.paramsTranscript(), []schnorr.Statement{pp.keyStatement()}, pp.Proof); err != nil {
		return newError(ProofInvalid, err, "key commitment self-proof does not verify")
	}
	return nil
}

func wipeZr(curve *math.Curve, z *math.Zr) {
	z.Clone(curve.NewZrFromInt(0))
}

// NewKey generates a fresh secret key and matching public parameters for
// attributeArity attribute slots. It draws attributeArity+3 random
// scalars: one per slot plus one for the blinding base (both wiped after
// deriving the generators), the MAC key scalar x0, and the commitment
// blinding r0. Failure of the randomness source is the only error path
// and is fatal to the caller.
func NewKey(curve *math.Curve, attributeArity int, rng io.Reader) (*SecretKey, *PublicParams, error) {
	if curve == nil || rng == nil {
		return nil, nil, newError(MalformedInput, nil, "received nil input")
	}
	if attributeArity < 1 {
		return nil, nil, newError(KeyMismatch, nil, "attribute arity must be at least 1, got %d", attributeArity)
	}

	// Per-issuer generators, derived from random scalars that are wiped
	// immediately: only their public images survive key generation.
	hr := curve.NewRandomZr(rng)
	HRand := curve.GenG1.Mul(hr)
	wipeZr(curve, hr)

	HAttrs := make([]*math.G1, attributeArity)
	for i := range HAttrs {
		hi := curve.NewRandomZr(rng)
		HAttrs[i] = curve.GenG1.Mul(hi)
		wipeZr(curve, hi)
	}

	x0 := curve.NewRandomZr(rng)
	r0 := curve.NewRandomZr(rng)

	pp := &PublicParams{
		CurveID: curveID(curve),
		HRand:   HRand,
		HAttrs:  HAttrs,
		CX0:     curve.GenG1.Mul2(x0, HRand, r0),
	}
	pp.Hash = pp.computeHash()

	proof, err := schnorr.Prove(curve, rng, pp.paramsTranscript(), []schnorr.Statement{pp.keyStatement()}, []*math.Zr{x0, r0})
	if err != nil {
		return nil, nil, err
	}
	pp.Proof = proof

	return &SecretKey{X0: x0, R0: r0, Params: pp}, pp, nil
}

func curveID(curve *math.Curve) math.CurveID {
	for id := range math.Curves {
		if math.Curves[id] == curve {
			return math.CurveID(id)
		}
	}
	// curves outside math.Curves cannot be named in serialized form
	return math.CurveID(0)
}

// Wipe zeroizes the key scalars. The key must not be used afterwards.
func (sk *SecretKey) Wipe() {
	curve := sk.Params.curve()
	wipeZr(curve, sk.X0)
	wipeZr(curve, sk.R0)
}
