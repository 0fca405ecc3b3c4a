/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kvac

import (
	"io"
	"testing"

	math "github.com/IBM/mathlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSetup(t *testing.T, arity int) (*SecretKey, *PublicParams, io.Reader) {
	curve := math.Curves[math.BN254]
	rng, err := curve.Rand()
	require.NoError(t, err)
	sk, pp, err := NewKey(curve, arity, rng)
	require.NoError(t, err)
	return sk, pp, rng
}

// issueCredential runs a full blind issuance for the test holder.
func issueCredential(t *testing.T, sk *SecretKey, pp *PublicParams, hidden, public map[int]*math.Zr, rng io.Reader) *Credential {
	nonce := pp.curve().NewRandomZr(rng).Bytes()
	req, state, err := NewCredRequest(pp, hidden, nonce, rng)
	require.NoError(t, err)
	resp, err := sk.Issue(req, public, rng)
	require.NoError(t, err)
	cred, err := NewCredential(pp, state, req, resp)
	require.NoError(t, err)
	return cred
}

func TestKeyGen(t *testing.T) {
	sk, pp, rng := testSetup(t, 4)

	assert.Equal(t, 4, pp.Arity())
	assert.NoError(t, pp.Check(), "freshly generated parameters should be valid")

	// parameters with a broken self-proof must be rejected
	goodChallenge := pp.Proof.Challenge
	pp.Proof.Challenge = pp.curve().NewRandomZr(rng)
	assert.ErrorIs(t, pp.Check(), ProofInvalid, "parameters with broken self-proof should be invalid")
	pp.Proof.Challenge = goodChallenge

	// parameters whose hash does not match must be rejected
	goodHash := pp.Hash
	pp.Hash = []byte("wrong")
	assert.ErrorIs(t, pp.Check(), MalformedInput)
	pp.Hash = goodHash
	assert.NoError(t, pp.Check(), "restored parameters should be valid")

	_, _, err := NewKey(pp.curve(), 0, rng)
	assert.ErrorIs(t, err, KeyMismatch, "key generation should fail for arity 0")

	sk.Wipe()
	assert.True(t, isZero(pp.curve(), sk.X0))
}

func TestIssuance(t *testing.T) {
	sk, pp, rng := testSetup(t, 3)
	curve := pp.curve()

	hidden := map[int]*math.Zr{0: curve.NewZrFromInt(10)}
	public := map[int]*math.Zr{1: curve.NewZrFromInt(11), 2: curve.NewZrFromInt(12)}

	nonce := curve.NewRandomZr(rng).Bytes()
	req, state, err := NewCredRequest(pp, hidden, nonce, rng)
	require.NoError(t, err)
	require.NoError(t, req.Check(pp))

	// a request with a tampered opening proof must be rejected before
	// any MAC is computed
	goodChallenge := req.Proof.Challenge
	req.Proof.Challenge = curve.NewRandomZr(rng)
	_, err = sk.Issue(req, public, rng)
	assert.ErrorIs(t, err, ProofInvalid)
	req.Proof.Challenge = goodChallenge

	// hidden and public slots must partition the attribute vector
	_, err = sk.Issue(req, map[int]*math.Zr{0: curve.NewZrFromInt(1), 1: public[1], 2: public[2]}, rng)
	assert.ErrorIs(t, err, KeyMismatch, "overlapping blind and clear slots should be rejected")
	_, err = sk.Issue(req, map[int]*math.Zr{1: public[1]}, rng)
	assert.ErrorIs(t, err, KeyMismatch, "uncovered slots should be rejected")

	resp, err := sk.Issue(req, public, rng)
	require.NoError(t, err)

	// a response with a tampered correctness proof must be rejected by
	// the holder, and nothing assembled
	goodChallenge = resp.Proof.Challenge
	resp.Proof.Challenge = curve.NewRandomZr(rng)
	cred, err := NewCredential(pp, state, req, resp)
	assert.ErrorIs(t, err, IssuanceRejected)
	assert.Nil(t, cred)
	resp.Proof.Challenge = goodChallenge

	// a response whose MAC covers a different commitment must be rejected
	goodA := resp.Mac.A
	resp.Mac.A = curve.GenG1.Mul(curve.NewRandomZr(rng))
	_, err = NewCredential(pp, state, req, resp)
	assert.ErrorIs(t, err, IssuanceRejected)
	resp.Mac.A = goodA

	cred, err = NewCredential(pp, state, req, resp)
	require.NoError(t, err)
	assert.NoError(t, cred.Ver(pp))
	assert.NoError(t, sk.Verify(cred.Commitment(pp), cred.MAC()))

	// requests bind the issuer nonce: a replay under a different nonce fails
	replay := &CredRequest{Commitment: req.Commitment, Hidden: req.Hidden, IssuerNonce: curve.NewRandomZr(rng).Bytes(), Proof: req.Proof}
	assert.ErrorIs(t, replay.Check(pp), ProofInvalid)
}

// TestEndToEnd follows one credential with attributes [A, B, C] through
// blind issuance and two presentations with different disclosure sets.
func TestEndToEnd(t *testing.T) {
	sk, pp, rng := testSetup(t, 3)
	curve := pp.curve()

	attrs := map[int]*math.Zr{
		0: curve.NewZrFromInt(100), // A
		1: curve.NewZrFromInt(200), // B
		2: curve.NewZrFromInt(300), // C
	}
	cred := issueCredential(t, sk, pp, attrs, nil, rng)

	// disclose only B
	disclosure := []byte{0, 1, 0}
	pres, meta, err := Present(pp, cred, disclosure, []byte("verifier-nonce"), nil, rng)
	require.NoError(t, err)
	assert.Nil(t, meta)

	attributeValues := []*math.Zr{nil, attrs[1], nil}
	assert.NoError(t, sk.VerifyPresentation(pres, disclosure, attributeValues, []byte("verifier-nonce")))

	// the presentation is bound to the message
	assert.ErrorIs(t, sk.VerifyPresentation(pres, disclosure, attributeValues, []byte("other-nonce")), ProofInvalid)

	// disclose nothing
	noDisclosure := []byte{0, 0, 0}
	pres2, _, err := Present(pp, cred, noDisclosure, nil, nil, rng)
	require.NoError(t, err)
	assert.NoError(t, sk.VerifyPresentation(pres2, noDisclosure, make([]*math.Zr, 3), nil))

	// altering a disclosed value must be rejected as an invalid proof
	wrongValues := []*math.Zr{nil, curve.NewZrFromInt(201), nil}
	assert.ErrorIs(t, sk.VerifyPresentation(pres, disclosure, wrongValues, []byte("verifier-nonce")), ProofInvalid)

	// disclosing everything is valid too
	full := []byte{1, 1, 1}
	pres3, _, err := Present(pp, cred, full, nil, nil, rng)
	require.NoError(t, err)
	assert.NoError(t, sk.VerifyPresentation(pres3, full, []*math.Zr{attrs[0], attrs[1], attrs[2]}, nil))
}

func TestPresentationRejection(t *testing.T) {
	sk, pp, rng := testSetup(t, 2)
	curve := pp.curve()

	attrs := map[int]*math.Zr{0: curve.NewZrFromInt(1), 1: curve.NewZrFromInt(2)}
	cred := issueCredential(t, sk, pp, attrs, nil, rng)

	disclosure := []byte{0, 0}
	pres, _, err := Present(pp, cred, disclosure, nil, nil, rng)
	require.NoError(t, err)
	values := make([]*math.Zr, 2)

	// a presentation under a different key fails the keyed check even if
	// the proof equations hold
	otherSk, _, err := NewKey(curve, 2, rng)
	require.NoError(t, err)
	otherSk.Params = pp
	assert.ErrorIs(t, otherSk.VerifyPresentation(pres, disclosure, values, nil), MacInvalid)

	// tampered proof material
	goodS := pres.Proof.S[0]
	pres.Proof.S[0] = curve.NewRandomZr(rng)
	assert.ErrorIs(t, sk.VerifyPresentation(pres, disclosure, values, nil), ProofInvalid)
	pres.Proof.S[0] = goodS

	goodABar := pres.ABar
	pres.ABar = curve.GenG1.Mul(curve.NewRandomZr(rng))
	assert.ErrorIs(t, sk.VerifyPresentation(pres, disclosure, values, nil), ProofInvalid)
	pres.ABar = goodABar
	assert.NoError(t, sk.VerifyPresentation(pres, disclosure, values, nil))

	// wrong-arity disclosure vectors never reach the proof equations
	assert.ErrorIs(t, sk.VerifyPresentation(pres, []byte{0}, values, nil), KeyMismatch)
}

func TestUnlinkability(t *testing.T) {
	sk, pp, rng := testSetup(t, 3)
	curve := pp.curve()

	attrs := map[int]*math.Zr{
		0: curve.NewZrFromInt(7),
		1: curve.NewZrFromInt(8),
		2: curve.NewZrFromInt(9),
	}
	cred := issueCredential(t, sk, pp, attrs, nil, rng)

	disclosure := []byte{0, 1, 0}
	values := []*math.Zr{nil, attrs[1], nil}

	presA, _, err := Present(pp, cred, disclosure, nil, nil, rng)
	require.NoError(t, err)
	presB, _, err := Present(pp, cred, disclosure, nil, nil, rng)
	require.NoError(t, err)

	// both rerandomizations of the one credential verify independently
	assert.NoError(t, sk.VerifyPresentation(presA, disclosure, values, nil))
	assert.NoError(t, sk.VerifyPresentation(presB, disclosure, values, nil))

	// nothing the verifier sees is shared between the two showings
	assert.False(t, presA.APrime.Equals(presB.APrime))
	assert.False(t, presA.ABar.Equals(presB.ABar))
	assert.False(t, presA.BPrime.Equals(presB.BPrime))
	assert.False(t, presA.Proof.Challenge.Equals(presB.Proof.Challenge))
}

func TestAttrNyms(t *testing.T) {
	sk, pp, rng := testSetup(t, 3)
	curve := pp.curve()

	attrs := map[int]*math.Zr{
		0: curve.NewZrFromInt(41),
		1: curve.NewZrFromInt(42),
		2: curve.NewZrFromInt(43),
	}
	cred := issueCredential(t, sk, pp, attrs, nil, rng)

	disclosure := []byte{0, 0, 1}
	values := []*math.Zr{nil, nil, attrs[2]}

	// committing to a disclosed slot is refused
	_, _, err := Present(pp, cred, disclosure, nil, &PresentOpts{CommitIndices: []int{2}}, rng)
	assert.ErrorIs(t, err, MalformedInput)

	pres, meta, err := Present(pp, cred, disclosure, nil, &PresentOpts{CommitIndices: []int{1}}, rng)
	require.NoError(t, err)
	require.NotNil(t, meta)
	require.Len(t, pres.Nyms, 1)
	assert.NoError(t, sk.VerifyPresentation(pres, disclosure, values, nil))

	// the audit data opens the commitment to exactly the hidden value
	audit := meta.NymAuditData[0]
	assert.NoError(t, AuditAttrNym(pp, pres, 1, audit.Attr, audit.Rand))
	assert.ErrorIs(t, AuditAttrNym(pp, pres, 1, curve.NewZrFromInt(999), audit.Rand), ProofInvalid)
	assert.ErrorIs(t, AuditAttrNym(pp, pres, 0, audit.Attr, audit.Rand), MalformedInput)

	// witness inputs for an accumulator collaborator
	in, err := WitnessInput(pres, disclosure, values, meta, 2)
	require.NoError(t, err)
	assert.True(t, in.Value.Equals(attrs[2]))

	in, err = WitnessInput(pres, disclosure, values, meta, 1)
	require.NoError(t, err)
	assert.True(t, in.Nym.Equals(pres.Nyms[0].Nym))
	assert.True(t, in.Attr.Equals(attrs[1]))

	_, err = WitnessInput(pres, disclosure, values, meta, 0)
	assert.ErrorIs(t, err, MalformedInput, "hidden slot without a commitment has no witness input")

	raw, err := FormatWitness(AlgNoRevocation, in)
	assert.NoError(t, err)
	assert.Nil(t, raw)
	_, err = FormatWitness(RevocationAlgorithm(42), in)
	assert.Error(t, err)
}

func TestVerifyBatch(t *testing.T) {
	sk, pp, rng := testSetup(t, 2)
	curve := pp.curve()

	attrs := map[int]*math.Zr{0: curve.NewZrFromInt(5), 1: curve.NewZrFromInt(6)}
	cred := issueCredential(t, sk, pp, attrs, nil, rng)

	disclosure := []byte{1, 0}
	values := []*math.Zr{attrs[0], nil}

	items := make([]*BatchItem, 8)
	for i := range items {
		pres, _, err := Present(pp, cred, disclosure, nil, nil, rng)
		require.NoError(t, err)
		items[i] = &BatchItem{Presentation: pres, Disclosure: disclosure, AttributeValues: values}
	}
	// corrupt one item and nil another
	items[3] = &BatchItem{
		Presentation:    items[3].Presentation,
		Disclosure:      disclosure,
		AttributeValues: []*math.Zr{curve.NewZrFromInt(55), nil},
	}
	items[6] = nil

	results := sk.VerifyBatch(items, 4)
	require.Len(t, results, len(items))
	for i, err := range results {
		switch i {
		case 3:
			assert.ErrorIs(t, err, ProofInvalid, "item %d", i)
		case 6:
			assert.ErrorIs(t, err, MalformedInput, "item %d", i)
		default:
			assert.NoError(t, err, "item %d", i)
		}
	}

	// the parallel outcome matches per-item sequential verification
	for i, item := range items {
		if item == nil {
			continue
		}
		seq := sk.VerifyPresentation(item.Presentation, item.Disclosure, item.AttributeValues, item.Msg)
		assert.Equal(t, seq == nil, results[i] == nil, "item %d", i)
	}

	assert.Empty(t, sk.VerifyBatch(nil, 4))
}

func TestCommitment(t *testing.T) {
	_, pp, rng := testSetup(t, 3)
	curve := pp.curve()

	attrs := []*math.Zr{curve.NewZrFromInt(1), curve.NewZrFromInt(2), curve.NewZrFromInt(3)}
	blinding := curve.NewRandomZr(rng)

	C, err := Commit(pp, attrs, blinding)
	require.NoError(t, err)

	_, err = Commit(pp, attrs[:2], blinding)
	assert.ErrorIs(t, err, KeyMismatch)
	_, err = Commit(pp, []*math.Zr{attrs[0], nil, attrs[2]}, blinding)
	assert.ErrorIs(t, err, MalformedInput)

	// a rerandomized commitment opens under the shifted blinding
	delta := curve.NewRandomZr(rng)
	C2 := Rerandomize(pp, C, delta)
	expected, err := Commit(pp, attrs, curve.ModAdd(blinding, delta, curve.GroupOrder))
	require.NoError(t, err)
	assert.True(t, C2.Equals(expected))
	assert.False(t, C2.Equals(C))
}
