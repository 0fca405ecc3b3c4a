/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kvac

import (
	"io"
	"sort"

	math "github.com/IBM/mathlib"

	"github.com/priv-creds/kvac/schnorr"
	"github.com/priv-creds/kvac/transcript"
)

// A presentation proves possession of a valid MAC over the credential's
// attributes, disclosing only a chosen subset of them. The credential is
// randomized with a fresh scalar r1:
//
//	APrime = A^{r1}
//	ABar   = B^{r1} * APrime^{-e}
//	BPrime = B^{r1} * HRand^{-r2}
//
// and the proof demonstrates, with r3 = 1/r1 and s' = s - r2*r3,
// knowledge of (e, r2, r3, s', hidden attributes) satisfying
//
//	ABar * BPrime^{-1}           = APrime^{-e} * HRand^{r2}
//	g1 * prod_D HAttrs[i]^{a_i}  = BPrime^{r3} * HRand^{-s'} * prod_H HAttrs[i]^{-a_i}
//
// where D are the disclosed and H the hidden slots. The verifier closes
// the keyed half of the check with ABar = APrime^{x0}. All published
// values are uniformly randomized, so two presentations of one
// credential are as unlinkable as presentations of two different ones.

// AttrNym is a hiding commitment to one hidden attribute, bound into the
// presentation proof. Its opening randomness is returned to the holder as
// audit data; the commitment doubles as the witness input format for
// accumulator collaborators.
type AttrNym struct {
	Index int
	Nym   *math.G1
}

type Presentation struct {
	APrime *math.G1
	ABar   *math.G1
	BPrime *math.G1
	Nyms   []*AttrNym
	Nonce  *math.Zr
	Proof  *schnorr.Proof
}

// PresentOpts selects presentation extensions. CommitIndices lists hidden
// attribute slots to additionally commit to via AttrNyms.
type PresentOpts struct {
	CommitIndices []int
}

// AttrNymAuditData lets the holder later open an AttrNym towards an
// auditor or accumulator, revealing one attribute without touching the
// rest of the presentation.
type AttrNymAuditData struct {
	Index int
	Nym   *math.G1
	Rand  *math.Zr
	Attr  *math.Zr
}

type PresentationMetadata struct {
	NymAuditData []*AttrNymAuditData
}

// Witness vector layout shared by prover and verifier: e, r2, r3, s',
// then the hidden attributes in ascending slot order, then the AttrNym
// randomness in ascending slot order.
const presentFixedWitnesses = 4

func presentStatements(pp *PublicParams, pres *Presentation, disclosure []byte, attributeValues []*math.Zr, hidden []int) []schnorr.Statement {
	curve := pp.curve()
	negHRand := negG1(curve, pp.HRand)

	// ABar * BPrime^{-1} = APrime^{-e} * HRand^{r2}
	macTarget := pres.ABar.Copy()
	macTarget.Sub(pres.BPrime)
	stmts := []schnorr.Statement{{
		Label:  "mac",
		Target: macTarget,
		Terms: []schnorr.Term{
			{Base: negG1(curve, pres.APrime), Witness: 0},
			{Base: pp.HRand, Witness: 1},
		},
	}}

	// g1 * prod_D HAttrs[i]^{a_i} =
	//   BPrime^{r3} * HRand^{-s'} * prod_H HAttrs[i]^{-a_i}
	openTarget := curve.NewG1()
	openTarget.Clone(curve.GenG1)
	for index, disclose := range disclosure {
		if disclose != 0 {
			openTarget.Add(pp.HAttrs[index].Mul(attributeValues[index]))
		}
	}
	openTerms := make([]schnorr.Term, 0, len(hidden)+2)
	openTerms = append(openTerms,
		schnorr.Term{Base: pres.BPrime, Witness: 2},
		schnorr.Term{Base: negHRand, Witness: 3},
	)
	for k, i := range hidden {
		openTerms = append(openTerms, schnorr.Term{Base: negG1(curve, pp.HAttrs[i]), Witness: presentFixedWitnesses + k})
	}
	stmts = append(stmts, schnorr.Statement{Label: "opening", Target: openTarget, Terms: openTerms})

	// Nym_i = HAttrs[i]^{a_i} * HRand^{r}, a_i shared with the opening
	for j, nym := range pres.Nyms {
		stmts = append(stmts, schnorr.Statement{
			Label:  "attr-nym",
			Target: nym.Nym,
			Terms: []schnorr.Term{
				{Base: pp.HAttrs[nym.Index], Witness: presentFixedWitnesses + sort.SearchInts(hidden, nym.Index)},
				{Base: pp.HRand, Witness: presentFixedWitnesses + len(hidden) + j},
			},
		})
	}

	return stmts
}

func presentTranscript(pp *PublicParams, pres *Presentation, disclosure []byte, attributeValues []*math.Zr, msg []byte) *transcript.Transcript {
	tr := transcript.New(pp.curve(), presentLabel)
	tr.AppendBytes("params-hash", pp.Hash)
	tr.AppendG1("a-prime", pres.APrime)
	tr.AppendG1("a-bar", pres.ABar)
	tr.AppendG1("b-prime", pres.BPrime)
	tr.AppendBytes("disclosure", disclosure)
	for index, disclose := range disclosure {
		if disclose != 0 {
			raw := make([]byte, 4)
			appendBytesUint32(raw, 0, uint32(index))
			tr.AppendBytes("disclosed-slot", raw)
			tr.AppendZr("disclosed-attr", attributeValues[index])
		}
	}
	for _, nym := range pres.Nyms {
		raw := make([]byte, 4)
		appendBytesUint32(raw, 0, uint32(nym.Index))
		tr.AppendBytes("nym-slot", raw)
		tr.AppendG1("nym", nym.Nym)
	}
	tr.AppendBytes("msg", msg)
	tr.AppendZr("nonce", pres.Nonce)
	return tr
}

// Present creates a presentation of the credential. disclosure steers
// which attributes are disclosed: disclosure[i] == 0 keeps attribute i
// hidden, any other value reveals it. Disclosing none maximizes
// unlinkability; disclosing all is valid and reduces the hidden set to
// the blinding alone. msg is bound into the challenge (a verifier nonce
// or application message); it may be nil. Metadata is non-nil exactly
// when opts requests attribute commitments.
func Present(pp *PublicParams, cred *Credential, disclosure []byte, msg []byte, opts *PresentOpts, rng io.Reader) (*Presentation, *PresentationMetadata, error) {
	if cred == nil || rng == nil {
		return nil, nil, newError(MalformedInput, nil, "received nil input")
	}
	if len(disclosure) != pp.Arity() {
		return nil, nil, newError(KeyMismatch, nil, "disclosure vector has length %d, parameters expect %d", len(disclosure), pp.Arity())
	}
	if err := cred.Ver(pp); err != nil {
		return nil, nil, err
	}
	curve := pp.curve()
	hidden := hiddenIndices(disclosure)

	var nymIndices []int
	if opts != nil {
		nymIndices = append([]int(nil), opts.CommitIndices...)
		sort.Ints(nymIndices)
		for k, i := range nymIndices {
			if k > 0 && nymIndices[k-1] == i {
				return nil, nil, newError(MalformedInput, nil, "duplicate commit index %d", i)
			}
			j := sort.SearchInts(hidden, i)
			if j == len(hidden) || hidden[j] != i {
				return nil, nil, newError(MalformedInput, nil, "cannot commit to attribute %d: not hidden by the disclosure", i)
			}
		}
	}

	// randomize the credential
	r1 := curve.NewRandomZr(rng)
	r2 := curve.NewRandomZr(rng)
	r3 := r1.Copy()
	r3.InvModP(curve.GroupOrder)
	sPrime := curve.ModSub(cred.S, curve.ModMul(r2, r3, curve.GroupOrder), curve.GroupOrder)

	APrime, ABar := cred.MAC().Randomize(curve, cred.B, r1)
	BPrime := cred.B.Mul(r1)
	BPrime.Sub(pp.HRand.Mul(r2))

	pres := &Presentation{
		APrime: APrime,
		ABar:   ABar,
		BPrime: BPrime,
		Nonce:  curve.NewRandomZr(rng),
	}

	witnesses := make([]*math.Zr, 0, presentFixedWitnesses+len(hidden)+len(nymIndices))
	witnesses = append(witnesses, cred.E, r2, r3, sPrime)
	for _, i := range hidden {
		witnesses = append(witnesses, cred.Attrs[i])
	}

	var meta *PresentationMetadata
	if len(nymIndices) > 0 {
		meta = &PresentationMetadata{}
		for _, i := range nymIndices {
			r := curve.NewRandomZr(rng)
			nym := pp.HAttrs[i].Mul2(cred.Attrs[i], pp.HRand, r)
			pres.Nyms = append(pres.Nyms, &AttrNym{Index: i, Nym: nym})
			meta.NymAuditData = append(meta.NymAuditData, &AttrNymAuditData{
				Index: i, Nym: nym, Rand: r, Attr: cred.Attrs[i],
			})
			witnesses = append(witnesses, r)
		}
	}

	proof, err := schnorr.Prove(curve, rng, presentTranscript(pp, pres, disclosure, cred.Attrs, msg),
		presentStatements(pp, pres, disclosure, cred.Attrs, hidden), witnesses)
	if err != nil {
		return nil, nil, err
	}
	pres.Proof = proof

	return pres, meta, nil
}

// VerifyPresentation checks a presentation against the secret key.
// disclosure carries the expected disclosure policy and attributeValues
// the claimed values at the disclosed slots (hidden slots may be nil).
// Both the zero-knowledge proof and the keyed MAC check must pass.
func (sk *SecretKey) VerifyPresentation(pres *Presentation, disclosure []byte, attributeValues []*math.Zr, msg []byte) error {
	pp := sk.Params
	if pres == nil || pres.APrime == nil || pres.ABar == nil || pres.BPrime == nil || pres.Nonce == nil || pres.Proof == nil {
		return newError(MalformedInput, nil, "presentation incomplete")
	}
	if len(disclosure) != pp.Arity() {
		return newError(KeyMismatch, nil, "disclosure vector has length %d, parameters expect %d", len(disclosure), pp.Arity())
	}
	if len(attributeValues) != pp.Arity() {
		return newError(KeyMismatch, nil, "attribute values have length %d, parameters expect %d", len(attributeValues), pp.Arity())
	}
	for index, disclose := range disclosure {
		if disclose != 0 && attributeValues[index] == nil {
			return newError(MalformedInput, nil, "no value for disclosed attribute %d", index)
		}
	}
	hidden := hiddenIndices(disclosure)

	for k, nym := range pres.Nyms {
		if nym == nil || nym.Nym == nil {
			return newError(MalformedInput, nil, "attribute commitment %d incomplete", k)
		}
		if k > 0 && pres.Nyms[k-1].Index >= nym.Index {
			return newError(MalformedInput, nil, "attribute commitments not strictly ascending")
		}
		j := sort.SearchInts(hidden, nym.Index)
		if j == len(hidden) || hidden[j] != nym.Index {
			return newError(MalformedInput, nil, "attribute commitment for slot %d which the disclosure does not hide", nym.Index)
		}
	}

	if want := presentFixedWitnesses + len(hidden) + len(pres.Nyms); len(pres.Proof.S) != want {
		return newError(ProofInvalid, nil, "incorrect amount of s-values: got %d, want %d", len(pres.Proof.S), want)
	}

	if err := schnorr.Verify(pp.curve(), presentTranscript(pp, pres, disclosure, attributeValues, msg),
		presentStatements(pp, pres, disclosure, attributeValues, hidden), pres.Proof); err != nil {
		logger.Debugw("presentation proof rejected", "err", err)
		return newError(ProofInvalid, err, "presentation proof does not verify")
	}

	if err := sk.VerifyRandomized(pres.APrime, pres.ABar); err != nil {
		logger.Debugw("presentation mac rejected", "err", err)
		return err
	}
	return nil
}

// AuditAttrNym opens the attribute commitment for one slot of a
// presentation against audit data, revealing that single attribute value
// and nothing else.
func AuditAttrNym(pp *PublicParams, pres *Presentation, index int, attr, rand *math.Zr) error {
	if attr == nil || rand == nil {
		return newError(MalformedInput, nil, "received nil input")
	}
	if index < 0 || index >= pp.Arity() {
		return newError(KeyMismatch, nil, "attribute index %d outside arity %d", index, pp.Arity())
	}
	for _, nym := range pres.Nyms {
		if nym.Index != index {
			continue
		}
		if !pp.HAttrs[index].Mul2(attr, pp.HRand, rand).Equals(nym.Nym) {
			return newError(ProofInvalid, nil, "attribute commitment for slot %d does not open to the claimed value", index)
		}
		return nil
	}
	return newError(MalformedInput, nil, "presentation carries no commitment for slot %d", index)
}
