/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kvac

import (
	math "github.com/IBM/mathlib"
)

// Credential is the holder's secret material: the MAC pair (A, E) on the
// commitment to the attribute vector, the B-value the MAC was computed
// over, the blinding scalar S of the commitment, and the attribute values
// themselves. It is assembled once by NewCredential and only read (and
// randomized into fresh values) by presentations; it never travels to a
// verifier.
type Credential struct {
	A *math.G1
	B *math.G1
	E *math.Zr
	S *math.Zr

	Attrs []*math.Zr
}

// MAC returns the credential's MAC pair.
func (cred *Credential) MAC() *MAC {
	return &MAC{A: cred.A, E: cred.E}
}

// Commitment returns the commitment the MAC covers, recovered from the
// stored B-value.
func (cred *Credential) Commitment(pp *PublicParams) *math.G1 {
	C := cred.B.Copy()
	C.Sub(pp.curve().GenG1)
	return C
}

// Ver checks the credential's internal consistency: every attribute slot
// is populated and the stored B-value matches the attributes and
// blinding. It requires no key; the holder has already verified the
// issuer's correctness proof during issuance.
func (cred *Credential) Ver(pp *PublicParams) error {
	if cred.A == nil || cred.B == nil || cred.E == nil || cred.S == nil {
		return newError(MalformedInput, nil, "credential incomplete")
	}
	if cred.A.IsInfinity() {
		return newError(MalformedInput, nil, "credential mac value is the identity")
	}
	if len(cred.Attrs) != pp.Arity() {
		return newError(KeyMismatch, nil, "credential has %d attributes, parameters expect %d", len(cred.Attrs), pp.Arity())
	}
	C, err := Commit(pp, cred.Attrs, cred.S)
	if err != nil {
		return err
	}
	if !cred.B.Equals(macBase(pp.curve(), C)) {
		return newError(MalformedInput, nil, "b-value from credential does not match the attribute values")
	}
	return nil
}
