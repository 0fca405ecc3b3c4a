/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kvac

import (
	"runtime"
	"sync"

	math "github.com/IBM/mathlib"
)

// BatchItem pairs one presentation with the context it must verify
// against.
type BatchItem struct {
	Presentation    *Presentation
	Disclosure      []byte
	AttributeValues []*math.Zr
	Msg             []byte
}

// VerifyBatch verifies independent presentations in parallel and returns
// one result per item, nil on acceptance, in input order. The outcome per
// item is the same as a sequential VerifyPresentation call would produce:
// the items share only the read-only key, so partitioning them across
// workers is observationally equivalent. workers <= 0 selects GOMAXPROCS.
func (sk *SecretKey) VerifyBatch(items []*BatchItem, workers int) []error {
	results := make([]error, len(items))
	if len(items) == 0 {
		return results
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(items) {
		workers = len(items)
	}

	indices := make(chan int, len(items))
	for i := range items {
		indices <- i
	}
	close(indices)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indices {
				item := items[i]
				if item == nil {
					results[i] = newError(MalformedInput, nil, "received nil batch item")
					continue
				}
				results[i] = sk.VerifyPresentation(item.Presentation, item.Disclosure, item.AttributeValues, item.Msg)
			}
		}()
	}
	wg.Wait()

	return results
}
