/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kvac

import (
	"crypto/subtle"
	"io"

	math "github.com/IBM/mathlib"
)

// MAC is the algebraic MAC over a commitment: A = (g1 * C)^{1/(x0+e)}
// with a nonce e drawn freshly for every MAC. The pair computationally
// hides x0 given only (C, A, e).
type MAC struct {
	A *math.G1
	E *math.Zr
}

// macBase computes B = g1 * C, the value the MAC exponentiates.
func macBase(curve *math.Curve, commitment *math.G1) *math.G1 {
	B := curve.NewG1()
	B.Clone(curve.GenG1)
	B.Add(commitment)
	return B
}

// MAC computes the keyed MAC over a commitment. The nonce is drawn
// internally, so no two calls can share one: nonce reuse across
// presentations of a credential would break unlinkability and must be
// structurally impossible rather than a caller obligation.
func (sk *SecretKey) MAC(commitment *math.G1, rng io.Reader) (*MAC, error) {
	if commitment == nil {
		return nil, newError(MalformedInput, nil, "received nil commitment")
	}
	if commitment.IsInfinity() {
		return nil, newError(MalformedInput, nil, "commitment is the identity")
	}
	curve := sk.Params.curve()

	e := curve.NewRandomZr(rng)
	exp := curve.ModAdd(sk.X0, e, curve.GroupOrder)
	for isZero(curve, exp) {
		// x0+e = 0 has no inverse; a fresh nonce resolves it
		e = curve.NewRandomZr(rng)
		exp = curve.ModAdd(sk.X0, e, curve.GroupOrder)
	}
	exp.InvModP(curve.GroupOrder)

	return &MAC{A: macBase(curve, commitment).Mul(exp), E: e}, nil
}

// Verify recomputes the MAC for (commitment, nonce) and compares in
// constant time. Any mismatch, including identity-element inputs, is
// reported as MacInvalid; the function never panics.
func (sk *SecretKey) Verify(commitment *math.G1, m *MAC) error {
	if m == nil || m.A == nil || m.E == nil || commitment == nil {
		return newError(MacInvalid, nil, "received nil input")
	}
	if commitment.IsInfinity() {
		return newError(MacInvalid, nil, "commitment is the identity")
	}
	if m.A.IsInfinity() {
		return newError(MacInvalid, nil, "mac value is the identity")
	}
	curve := sk.Params.curve()

	exp := curve.ModAdd(sk.X0, m.E, curve.GroupOrder)
	if isZero(curve, exp) {
		return newError(MacInvalid, nil, "nonce out of range for this key")
	}
	exp.InvModP(curve.GroupOrder)
	expected := macBase(curve, commitment).Mul(exp)

	if subtle.ConstantTimeCompare(expected.Bytes(), m.A.Bytes()) != 1 {
		return newError(MacInvalid, nil, "mac does not verify against commitment and nonce")
	}
	return nil
}

// Randomize applies the structural rerandomization of the MAC: for a
// fresh scalar r1 it returns
//
//	APrime = A^{r1}
//	ABar   = B^{r1} * APrime^{-e}
//
// which satisfy ABar = APrime^{x0} whenever A is a valid MAC on B. The
// presentation protocol publishes (APrime, ABar); the verifier closes the
// loop with VerifyRandomized. Co-designed with MAC and Verify: validity
// of the transform is exactly the linearity of A in B.
func (m *MAC) Randomize(curve *math.Curve, B *math.G1, r1 *math.Zr) (*math.G1, *math.G1) {
	APrime := m.A.Mul(r1)
	ABar := B.Mul(r1)
	ABar.Sub(APrime.Mul(m.E))
	return APrime, ABar
}

// VerifyRandomized is the keyed check on a randomized MAC pair:
// ABar must equal APrime^{x0}. Compared in constant time.
func (sk *SecretKey) VerifyRandomized(APrime, ABar *math.G1) error {
	if APrime == nil || ABar == nil {
		return newError(MacInvalid, nil, "received nil input")
	}
	if APrime.IsInfinity() {
		return newError(MacInvalid, nil, "randomized mac value is the identity")
	}
	if subtle.ConstantTimeCompare(APrime.Mul(sk.X0).Bytes(), ABar.Bytes()) != 1 {
		return newError(MacInvalid, nil, "randomized mac does not verify under this key")
	}
	return nil
}

func isZero(curve *math.Curve, z *math.Zr) bool {
	return z.Equals(curve.NewZrFromInt(0))
}
