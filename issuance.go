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

// Credential issuance is an interactive protocol between a holder and the
// issuer:
//
//  1. The issuer sends a fresh nonce to the holder.
//  2. The holder commits to a blinding scalar and the attributes it wants
//     to keep hidden from the issuer, and sends the commitment together
//     with a proof of knowledge of its opening (NewCredRequest).
//  3. The issuer verifies the proof, folds its own attribute values for
//     the remaining slots into the commitment, MACs the result, and
//     returns the MAC with a proof that it was computed under the key
//     committed to in the public parameters (Issue).
//  4. The holder verifies the issuer's proof and assembles the credential
//     (NewCredential). On any failure nothing is stored.

// CredRequest is the holder's first-move message: a commitment to the
// hidden attribute slots plus blinding, the slot indices it covers, and
// the proof of knowledge of the opening.
type CredRequest struct {
	Commitment  *math.G1
	Hidden      []int
	IssuerNonce []byte
	Proof       *schnorr.Proof
}

// CredRequestState is the holder's private state for one issuance run.
// It never leaves the holder.
type CredRequestState struct {
	blinding *math.Zr
	attrs    map[int]*math.Zr
}

func sortedKeys(m map[int]*math.Zr) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// requestStatement is the opening relation of the request commitment:
// Commitment = HRand^blinding * prod HAttrs[i]^{a_i} over the hidden
// slots, blinding at witness 0 and the hidden attributes following in
// ascending slot order.
func requestStatement(pp *PublicParams, commitment *math.G1, hidden []int) schnorr.Statement {
	terms := make([]schnorr.Term, 0, len(hidden)+1)
	terms = append(terms, schnorr.Term{Base: pp.HRand, Witness: 0})
	for k, i := range hidden {
		terms = append(terms, schnorr.Term{Base: pp.HAttrs[i], Witness: 1 + k})
	}
	return schnorr.Statement{Label: "request-opening", Target: commitment, Terms: terms}
}

func requestTranscript(pp *PublicParams, hidden []int, issuerNonce []byte) *transcript.Transcript {
	tr := transcript.New(pp.curve(), credRequestLabel)
	tr.AppendBytes("params-hash", pp.Hash)
	tr.AppendBytes("issuer-nonce", issuerNonce)
	raw := make([]byte, 4*(len(hidden)+1))
	index := appendBytesUint32(raw, 0, uint32(len(hidden)))
	for _, i := range hidden {
		index = appendBytesUint32(raw, index, uint32(i))
	}
	tr.AppendBytes("hidden-slots", raw)
	return tr
}

// NewCredRequest starts an issuance run. hidden maps the attribute slots
// the holder keeps blind to their values; it may be empty when the issuer
// knows every attribute. issuerNonce is the nonce received from the
// issuer and binds the request to this run.
func NewCredRequest(pp *PublicParams, hidden map[int]*math.Zr, issuerNonce []byte, rng io.Reader) (*CredRequest, *CredRequestState, error) {
	indices := sortedKeys(hidden)
	for _, i := range indices {
		if i < 0 || i >= pp.Arity() {
			return nil, nil, newError(KeyMismatch, nil, "hidden attribute index %d outside arity %d", i, pp.Arity())
		}
		if hidden[i] == nil {
			return nil, nil, newError(MalformedInput, nil, "hidden attribute %d is nil", i)
		}
	}
	curve := pp.curve()

	blinding := curve.NewRandomZr(rng)
	commitment := commitSubset(pp, indices, hidden, blinding)

	witnesses := make([]*math.Zr, 0, len(indices)+1)
	witnesses = append(witnesses, blinding)
	for _, i := range indices {
		witnesses = append(witnesses, hidden[i])
	}

	proof, err := schnorr.Prove(curve, rng, requestTranscript(pp, indices, issuerNonce),
		[]schnorr.Statement{requestStatement(pp, commitment, indices)}, witnesses)
	if err != nil {
		return nil, nil, err
	}

	state := &CredRequestState{blinding: blinding, attrs: make(map[int]*math.Zr, len(hidden))}
	for i, a := range hidden {
		state.attrs[i] = a
	}

	return &CredRequest{
		Commitment:  commitment,
		Hidden:      indices,
		IssuerNonce: issuerNonce,
		Proof:       proof,
	}, state, nil
}

// Check verifies the well-formedness of a credential request and its
// proof of knowledge of the commitment opening.
func (req *CredRequest) Check(pp *PublicParams) error {
	if req.Commitment == nil || req.Proof == nil {
		return newError(MalformedInput, nil, "credential request incomplete")
	}
	if req.Commitment.IsInfinity() {
		return newError(MalformedInput, nil, "request commitment is the identity")
	}
	for k, i := range req.Hidden {
		if i < 0 || i >= pp.Arity() {
			return newError(KeyMismatch, nil, "hidden attribute index %d outside arity %d", i, pp.Arity())
		}
		if k > 0 && req.Hidden[k-1] >= i {
			return newError(MalformedInput, nil, "hidden attribute indices not strictly ascending")
		}
	}
	if err := schnorr.Verify(pp.curve(), requestTranscript(pp, req.Hidden, req.IssuerNonce),
		[]schnorr.Statement{requestStatement(pp, req.Commitment, req.Hidden)}, req.Proof); err != nil {
		return newError(ProofInvalid, err, "request opening proof does not verify")
	}
	return nil
}

// CredResponse is the issuer's message: the MAC over the full commitment,
// the attribute values the issuer supplied for the non-hidden slots, and
// the proof that the MAC was computed under the committed key.
type CredResponse struct {
	Mac    *MAC
	Public map[int]*math.Zr
	Proof  *schnorr.Proof
}

func issueTranscript(pp *PublicParams, req *CredRequest, fullCommitment *math.G1, m *MAC, public map[int]*math.Zr) *transcript.Transcript {
	tr := transcript.New(pp.curve(), credIssueLabel)
	tr.AppendBytes("params-hash", pp.Hash)
	tr.AppendBytes("issuer-nonce", req.IssuerNonce)
	tr.AppendG1("request-commitment", req.Commitment)
	tr.AppendG1("commitment", fullCommitment)
	tr.AppendG1("mac-a", m.A)
	tr.AppendZr("mac-e", m.E)
	for _, i := range sortedKeys(public) {
		raw := make([]byte, 4)
		appendBytesUint32(raw, 0, uint32(i))
		tr.AppendBytes("public-slot", raw)
		tr.AppendZr("public-attr", public[i])
	}
	return tr
}

// issueStatements is the issuer correctness relation: knowledge of
// (x0, r0) opening CX0, with the same x0 satisfying B * A^{-e} = A^{x0}.
func issueStatements(pp *PublicParams, B *math.G1, m *MAC) []schnorr.Statement {
	target := B.Copy()
	target.Sub(m.A.Mul(m.E))
	return []schnorr.Statement{
		pp.keyStatement(),
		{
			Label:  "mac-correctness",
			Target: target,
			Terms:  []schnorr.Term{{Base: m.A, Witness: 0}},
		},
	}
}

// Issue runs the issuer's side. public maps every slot not covered by the
// request to its attribute value. If the request proof fails, no MAC is
// computed and the run aborts with ProofInvalid.
func (sk *SecretKey) Issue(req *CredRequest, public map[int]*math.Zr, rng io.Reader) (*CredResponse, error) {
	pp := sk.Params
	if err := req.Check(pp); err != nil {
		logger.Debugw("credential request rejected", "err", err)
		return nil, err
	}

	// the hidden and public slots must partition the attribute vector
	covered := make(map[int]bool, pp.Arity())
	for _, i := range req.Hidden {
		covered[i] = true
	}
	pubIndices := sortedKeys(public)
	for _, i := range pubIndices {
		if i < 0 || i >= pp.Arity() {
			return nil, newError(KeyMismatch, nil, "public attribute index %d outside arity %d", i, pp.Arity())
		}
		if covered[i] {
			return nil, newError(KeyMismatch, nil, "attribute %d supplied both blind and in the clear", i)
		}
		if public[i] == nil {
			return nil, newError(MalformedInput, nil, "public attribute %d is nil", i)
		}
		covered[i] = true
	}
	if len(covered) != pp.Arity() {
		return nil, newError(KeyMismatch, nil, "attribute slots covered %d of %d", len(covered), pp.Arity())
	}
	curve := pp.curve()

	// fold the issuer-known attributes into the holder's commitment
	fullCommitment := req.Commitment.Copy()
	fullCommitment.Add(commitSubset(pp, pubIndices, public, curve.NewZrFromInt(0)))

	m, err := sk.MAC(fullCommitment, rng)
	if err != nil {
		return nil, err
	}

	proof, err := schnorr.Prove(curve, rng, issueTranscript(pp, req, fullCommitment, m, public),
		issueStatements(pp, macBase(curve, fullCommitment), m), []*math.Zr{sk.X0, sk.R0})
	if err != nil {
		return nil, err
	}

	resp := &CredResponse{Mac: m, Public: make(map[int]*math.Zr, len(public)), Proof: proof}
	for i, a := range public {
		resp.Public[i] = a
	}
	return resp, nil
}

// NewCredential finishes an issuance run on the holder's side: it checks
// the issuer's correctness proof against the holder's own view of the
// commitment and, on success, assembles the credential. On failure the
// response is discarded and nothing is persisted.
func NewCredential(pp *PublicParams, state *CredRequestState, req *CredRequest, resp *CredResponse) (*Credential, error) {
	if resp == nil || resp.Mac == nil || resp.Mac.A == nil || resp.Mac.E == nil || resp.Proof == nil {
		return nil, newError(IssuanceRejected, nil, "issuer response incomplete")
	}
	if resp.Mac.A.IsInfinity() {
		return nil, newError(IssuanceRejected, nil, "issuer mac value is the identity")
	}

	// assemble the full attribute vector from both parties' contributions
	attrs := make([]*math.Zr, pp.Arity())
	for i, a := range state.attrs {
		attrs[i] = a
	}
	for i, a := range resp.Public {
		if i < 0 || i >= pp.Arity() {
			return nil, newError(KeyMismatch, nil, "public attribute index %d outside arity %d", i, pp.Arity())
		}
		if attrs[i] != nil {
			return nil, newError(IssuanceRejected, nil, "issuer supplied a value for blind slot %d", i)
		}
		attrs[i] = a
	}
	for i, a := range attrs {
		if a == nil {
			return nil, newError(KeyMismatch, nil, "no value for attribute slot %d", i)
		}
	}

	C, err := Commit(pp, attrs, state.blinding)
	if err != nil {
		return nil, err
	}
	B := macBase(pp.curve(), C)

	if err := schnorr.Verify(pp.curve(), issueTranscript(pp, req, C, resp.Mac, resp.Public),
		issueStatements(pp, B, resp.Mac), resp.Proof); err != nil {
		logger.Debugw("issuer correctness proof rejected", "err", err)
		return nil, newError(IssuanceRejected, err, "issuer correctness proof does not verify")
	}

	return &Credential{
		A:     resp.Mac.A,
		B:     B,
		E:     resp.Mac.E,
		S:     state.blinding,
		Attrs: attrs,
	}, nil
}
