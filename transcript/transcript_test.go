/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transcript

import (
	"testing"

	math "github.com/IBM/mathlib"
	"github.com/stretchr/testify/assert"
)

func TestChallengeDeterminism(t *testing.T) {
	curve := math.Curves[math.BN254]

	tr1 := New(curve, "test")
	tr1.AppendBytes("a", []byte{1, 2, 3})
	tr1.AppendG1("g", curve.GenG1)

	tr2 := New(curve, "test")
	tr2.AppendBytes("a", []byte{1, 2, 3})
	tr2.AppendG1("g", curve.GenG1)

	assert.True(t, tr1.ChallengeZr("c").Equals(tr2.ChallengeZr("c")))
}

func TestProtocolLabelSeparatesChallenges(t *testing.T) {
	curve := math.Curves[math.BN254]

	tr1 := New(curve, "protocol-one")
	tr2 := New(curve, "protocol-two")
	tr1.AppendBytes("a", []byte{1})
	tr2.AppendBytes("a", []byte{1})

	assert.False(t, tr1.ChallengeZr("c").Equals(tr2.ChallengeZr("c")))
}

func TestFramingIsUnambiguous(t *testing.T) {
	curve := math.Curves[math.BN254]

	// "ab" || "c" and "a" || "bc" must not collide
	tr1 := New(curve, "test")
	tr1.AppendBytes("x", []byte("ab"))
	tr1.AppendBytes("y", []byte("c"))

	tr2 := New(curve, "test")
	tr2.AppendBytes("x", []byte("a"))
	tr2.AppendBytes("y", []byte("bc"))

	assert.False(t, tr1.ChallengeZr("c").Equals(tr2.ChallengeZr("c")))
}

func TestSecondChallengeDependsOnFirst(t *testing.T) {
	curve := math.Curves[math.BN254]

	tr1 := New(curve, "test")
	tr2 := New(curve, "test")
	tr2.AppendBytes("extra", []byte{42})

	c1 := tr1.ChallengeZr("c")
	c2 := tr2.ChallengeZr("c")
	assert.False(t, c1.Equals(c2))

	// follow-up challenges diverge as well
	assert.False(t, tr1.ChallengeZr("d").Equals(tr2.ChallengeZr("d")))
}
