/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package schnorr proves knowledge of scalars satisfying a system of
// linear equations over G1. A caller states each equation as
//
//	Target = prod_j Base_j ^ w_{Terms[j].Witness}
//
// over a shared witness vector, so the same scalar can be bound across
// several equations (e.g. a commitment opening and a MAC relation).
// Proofs are made non-interactive by drawing the challenge from a
// transcript the caller has already seeded with the statement context.
package schnorr

import (
	"io"

	math "github.com/IBM/mathlib"
	"github.com/pkg/errors"

	"github.com/priv-creds/kvac/transcript"
)

// Term is one base raised to one witness inside a statement. Relations
// with negated witnesses are expressed by negating the base.
type Term struct {
	Base    *math.G1
	Witness int
}

type Statement struct {
	Label  string
	Target *math.G1
	Terms  []Term
}

// Proof holds the challenge and one s-value per witness. The t-values are
// not transmitted: the verifier recomputes them from the s-values and the
// challenge, then checks the recomputed challenge matches.
type Proof struct {
	Challenge *math.Zr
	S         []*math.Zr
}

func numWitnesses(stmts []Statement) (int, error) {
	n := 0
	for _, st := range stmts {
		if st.Target == nil {
			return 0, errors.Errorf("statement %q has no target", st.Label)
		}
		for _, tm := range st.Terms {
			if tm.Base == nil {
				return 0, errors.Errorf("statement %q has a nil base", st.Label)
			}
			if tm.Witness < 0 {
				return 0, errors.Errorf("statement %q references negative witness index", st.Label)
			}
			if tm.Witness >= n {
				n = tm.Witness + 1
			}
		}
	}
	return n, nil
}

// combine computes prod_j Base_j^{scalars[Terms[j].Witness]}, pairing
// terms through Mul2 to halve the number of scalar multiplications.
func combine(curve *math.Curve, terms []Term, scalars []*math.Zr) *math.G1 {
	acc := curve.NewG1()
	for i := 0; i+1 < len(terms); i += 2 {
		acc.Add(terms[i].Base.Mul2(scalars[terms[i].Witness], terms[i+1].Base, scalars[terms[i+1].Witness]))
	}
	if len(terms)%2 != 0 {
		acc.Add(terms[len(terms)-1].Base.Mul(scalars[terms[len(terms)-1].Witness]))
	}
	return acc
}

func appendCommitments(tr *transcript.Transcript, stmts []Statement, ts []*math.G1) {
	for i, st := range stmts {
		tr.AppendG1(st.Label+"/target", st.Target)
		tr.AppendG1(st.Label+"/t", ts[i])
	}
}

// Prove produces a proof of knowledge of the witness vector. The witness
// slice must cover every index referenced by the statements.
func Prove(curve *math.Curve, rng io.Reader, tr *transcript.Transcript, stmts []Statement, witnesses []*math.Zr) (*Proof, error) {
	n, err := numWitnesses(stmts)
	if err != nil {
		return nil, err
	}
	if len(witnesses) < n {
		return nil, errors.Errorf("statement system references %d witnesses, got %d", n, len(witnesses))
	}

	// blinding scalar per witness, then the t-value of each statement
	blind := make([]*math.Zr, len(witnesses))
	for i := range blind {
		blind[i] = curve.NewRandomZr(rng)
	}
	ts := make([]*math.G1, len(stmts))
	for i, st := range stmts {
		ts[i] = combine(curve, st.Terms, blind)
	}

	appendCommitments(tr, stmts, ts)
	c := tr.ChallengeZr("schnorr-challenge")

	s := make([]*math.Zr, len(witnesses))
	for i := range witnesses {
		// s_i = blind_i + c * w_i
		s[i] = curve.ModAdd(blind[i], curve.ModMul(c, witnesses[i], curve.GroupOrder), curve.GroupOrder)
	}

	return &Proof{Challenge: c, S: s}, nil
}

// Verify checks the proof against the statement system. The transcript
// must have been seeded exactly as at proving time.
func Verify(curve *math.Curve, tr *transcript.Transcript, stmts []Statement, proof *Proof) error {
	if proof == nil || proof.Challenge == nil {
		return errors.New("nil proof")
	}
	n, err := numWitnesses(stmts)
	if err != nil {
		return err
	}
	if len(proof.S) < n {
		return errors.Errorf("statement system references %d witnesses, proof carries %d s-values", n, len(proof.S))
	}
	for _, s := range proof.S {
		if s == nil {
			return errors.New("nil s-value in proof")
		}
	}

	// recompute t_i = prod_j Base_j^{s_j} * Target^{-c}
	ts := make([]*math.G1, len(stmts))
	for i, st := range stmts {
		t := combine(curve, st.Terms, proof.S)
		t.Sub(st.Target.Mul(proof.Challenge))
		ts[i] = t
	}

	appendCommitments(tr, stmts, ts)
	c := tr.ChallengeZr("schnorr-challenge")
	if !c.Equals(proof.Challenge) {
		return errors.New("zero-knowledge proof is invalid: challenge mismatch")
	}
	return nil
}
