/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kvac

import (
	"go.uber.org/zap"
)

// The package logger is a no-op unless the embedding application installs
// one. Records are emitted only at protocol rejection points and never
// contain key material, attribute values, or blinding scalars.
var logger = zap.NewNop().Sugar()

// SetLogger installs the application's logger for this package.
func SetLogger(l *zap.Logger) {
	logger = l.Named("kvac").Sugar()
}
