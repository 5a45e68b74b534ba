// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recorder

import (
	"strconv"
	"strings"

	"github.com/bureau-foundation/gazelog/lib/gaze"
)

// paramsReplacer keeps the parameter log inside its column: commas
// would split it and line breaks would split the row.
var paramsReplacer = strings.NewReplacer(",", "|", "\r", " ", "\n", " ")

// AppendRow appends one CSV row, including its trailing newline, to
// dst. The time and the six scalar fields are rendered with exactly
// four decimal places; the row always has nine fields.
func AppendRow(dst []byte, seconds float64, sample gaze.Sample) []byte {
	dst = strconv.AppendFloat(dst, seconds, 'f', 4, 64)
	for _, value := range [...]float32{
		sample.LeftGazeX, sample.LeftGazeY,
		sample.RightGazeX, sample.RightGazeY,
		sample.LeftOpenness, sample.RightOpenness,
	} {
		dst = append(dst, ',')
		dst = strconv.AppendFloat(dst, float64(value), 'f', 4, 32)
	}
	dst = append(dst, ',')
	dst = append(dst, paramsReplacer.Replace(sample.Params)...)
	dst = append(dst, ',')
	dst = append(dst, sample.RawHex...)
	return append(dst, '\n')
}
