/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kvac

import (
	"encoding/binary"

	math "github.com/IBM/mathlib"
)

func appendBytes(data []byte, index int, bytesToAdd []byte) int {
	copy(data[index:], bytesToAdd)
	return index + len(bytesToAdd)
}

func appendBytesG1(data []byte, index int, E *math.G1) int {
	return appendBytes(data, index, E.Bytes())
}

func appendBytesZr(data []byte, index int, B *math.Zr) int {
	return appendBytes(data, index, B.Bytes())
}

func appendBytesUint32(data []byte, index int, v uint32) int {
	binary.BigEndian.PutUint32(data[index:], v)
	return index + 4
}

// negG1 returns -p without mutating p.
func negG1(curve *math.Curve, p *math.G1) *math.G1 {
	n := curve.NewG1()
	n.Sub(p)
	return n
}

// hiddenIndices lists the attribute slots a disclosure vector keeps
// hidden: Disclosure[i] == 0 hides slot i, any other value discloses it.
func hiddenIndices(disclosure []byte) []int {
	hidden := make([]int, 0, len(disclosure))
	for index, disclose := range disclosure {
		if disclose == 0 {
			hidden = append(hidden, index)
		}
	}
	return hidden
}
