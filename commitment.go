/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kvac

import (
	math "github.com/IBM/mathlib"
)

// Commit computes the Pedersen commitment
//
//	C = HRand^blinding * prod_i HAttrs[i]^{attrs[i]}
//
// over the full attribute vector. The commitment is binding under the
// discrete-log assumption in the adapter's group and hiding through the
// blinding scalar.
func Commit(pp *PublicParams, attrs []*math.Zr, blinding *math.Zr) (*math.G1, error) {
	if blinding == nil {
		return nil, newError(MalformedInput, nil, "received nil blinding scalar")
	}
	if len(attrs) != pp.Arity() {
		return nil, newError(KeyMismatch, nil, "attribute vector has length %d, parameters expect %d", len(attrs), pp.Arity())
	}
	for i, a := range attrs {
		if a == nil {
			return nil, newError(MalformedInput, nil, "attribute %d is nil", i)
		}
	}

	C := pp.HRand.Mul(blinding)
	// fold attribute terms pairwise, Mul2 halves the scalar multiplications
	for i := 0; i+1 < len(attrs); i += 2 {
		C.Add(pp.HAttrs[i].Mul2(attrs[i], pp.HAttrs[i+1], attrs[i+1]))
	}
	if len(attrs)%2 != 0 {
		C.Add(pp.HAttrs[len(attrs)-1].Mul(attrs[len(attrs)-1]))
	}
	return C, nil
}

// commitSubset commits to the attributes at the given slot indices only,
// plus the blinding term. Used by blind issuance, where the holder
// commits to the hidden slots and the issuer folds in the rest.
func commitSubset(pp *PublicParams, indices []int, attrs map[int]*math.Zr, blinding *math.Zr) *math.G1 {
	C := pp.HRand.Mul(blinding)
	for i := 0; i+1 < len(indices); i += 2 {
		C.Add(pp.HAttrs[indices[i]].Mul2(attrs[indices[i]], pp.HAttrs[indices[i+1]], attrs[indices[i+1]]))
	}
	if len(indices)%2 != 0 {
		last := indices[len(indices)-1]
		C.Add(pp.HAttrs[last].Mul(attrs[last]))
	}
	return C
}

// Rerandomize returns C * HRand^delta without mutating C. A rerandomized
// commitment opens to the same attributes under blinding+delta.
func Rerandomize(pp *PublicParams, C *math.G1, delta *math.Zr) *math.G1 {
	out := C.Copy()
	out.Add(pp.HRand.Mul(delta))
	return out
}
