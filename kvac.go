/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package kvac implements keyed-verification anonymous credentials over
// an algebraic MAC.
//
// An issuer authority generates a secret key together with public
// parameters for a fixed number of attribute slots. A holder obtains a
// credential on a (possibly partially hidden) attribute vector through a
// blind issuance exchange, and can then present the credential any number
// of times, disclosing an arbitrary subset of attributes. Each
// presentation carries freshly randomized values and a zero-knowledge
// proof, so two presentations of the same credential cannot be linked.
//
// Verification requires the issuer's secret key: the scheme trades the
// public verifiability of pairing-based credential signatures for
// pairing-free issuance and verification. The secret key is an explicit
// capability object; every verifying party holds a *SecretKey and no
// ambient state is shared between instances.
//
// The MAC over a commitment C with nonce e is
//
//	B = g1 * C
//	A = B^{1/(x0+e)}
//
// where x0 is the MAC key scalar. A presentation randomizes (A, B) with a
// fresh scalar r1 and proves the relation in zero knowledge; the verifier
// completes the check with the keyed equation ABar = APrime^{x0}.
package kvac

// Protocol labels domain-separate the Fiat-Shamir transcripts of the
// individual proofs, so no proof can be replayed in another role.
const (
	paramsLabel      = "kvac-params"
	credRequestLabel = "kvac-cred-request"
	credIssueLabel   = "kvac-cred-issue"
	presentLabel     = "kvac-present"
)
