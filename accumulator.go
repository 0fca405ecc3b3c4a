/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kvac

import (
	math "github.com/IBM/mathlib"
	"github.com/pkg/errors"
)

// RevocationAlgorithm identifies the accumulator scheme a deployment uses
// for revocation checks. The core does not implement accumulators; it
// only hands them witness inputs in the shape their membership check
// expects.
type RevocationAlgorithm int32

const (
	// AlgNoRevocation means no revocation support
	AlgNoRevocation RevocationAlgorithm = iota
)

// AccumulatorWitnessInput is the witness material the core exposes for
// one attribute slot: the disclosed value in the clear, or, for a hidden
// slot, the Pedersen commitment from the presentation together with its
// opening. An accumulator collaborator consumes exactly one of the two
// forms.
type AccumulatorWitnessInput struct {
	Index int
	// Value is set for disclosed slots.
	Value *math.Zr
	// Nym and its opening are set for hidden slots the presentation
	// committed to.
	Nym  *math.G1
	Rand *math.Zr
	Attr *math.Zr
}

// accumulatorWitness is the membership-witness half of the collaborator
// interface: given witness input for one slot, produce whatever the
// accumulator needs to bind into its own (non-)membership proof.
type accumulatorWitness interface {
	witnessBytes(in *AccumulatorWitnessInput) ([]byte, error)
}

// nopAccumulatorWitness is the witness formatter of AlgNoRevocation.
type nopAccumulatorWitness struct{}

func (w *nopAccumulatorWitness) witnessBytes(in *AccumulatorWitnessInput) ([]byte, error) {
	return nil, nil
}

func getAccumulatorWitness(algorithm RevocationAlgorithm) (accumulatorWitness, error) {
	switch algorithm {
	case AlgNoRevocation:
		return &nopAccumulatorWitness{}, nil
	default:
		// unknown revocation algorithm
		return nil, errors.Errorf("unknown revocation algorithm %d", algorithm)
	}
}

// WitnessInput extracts the accumulator witness input for one attribute
// slot of a presentation. Disclosed slots yield the value directly; a
// hidden slot must carry an AttrNym, whose opening comes from the
// holder's presentation metadata (nil for a verifier-side caller, who
// passes the commitment on without opening it).
func WitnessInput(pres *Presentation, disclosure []byte, attributeValues []*math.Zr, meta *PresentationMetadata, index int) (*AccumulatorWitnessInput, error) {
	if index < 0 || index >= len(disclosure) {
		return nil, newError(KeyMismatch, nil, "attribute index %d outside disclosure vector of length %d", index, len(disclosure))
	}
	if disclosure[index] != 0 {
		if index >= len(attributeValues) || attributeValues[index] == nil {
			return nil, newError(MalformedInput, nil, "no value for disclosed attribute %d", index)
		}
		return &AccumulatorWitnessInput{Index: index, Value: attributeValues[index]}, nil
	}
	for _, nym := range pres.Nyms {
		if nym.Index != index {
			continue
		}
		in := &AccumulatorWitnessInput{Index: index, Nym: nym.Nym}
		if meta != nil {
			for _, audit := range meta.NymAuditData {
				if audit.Index == index {
					in.Rand = audit.Rand
					in.Attr = audit.Attr
				}
			}
		}
		return in, nil
	}
	return nil, newError(MalformedInput, nil, "presentation carries no commitment for hidden slot %d", index)
}

// FormatWitness runs the collaborator-specific formatter over a witness
// input. With AlgNoRevocation this is a no-op and returns nil bytes.
func FormatWitness(algorithm RevocationAlgorithm, in *AccumulatorWitnessInput) ([]byte, error) {
	w, err := getAccumulatorWitness(algorithm)
	if err != nil {
		return nil, newError(MalformedInput, err, "no witness formatter for algorithm %d", algorithm)
	}
	return w.witnessBytes(in)
}
