// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var formatNumberTests = []struct {
	f        float64
	expected string
}{
	{0, "0"},
	{math.Copysign(0, -1), "0"},
	{1, "1"},
	{-3, "-3"},
	{1.5, "1.5"},
	{0.1, "0.1"},
	{0.000001, "0.000001"},
	{0.0000001, "1e-7"},
	{1e20, "100000000000000000000"},
	{1e21, "1e+21"},
	{-2.5e-10, "-2.5e-10"},
	{math.NaN(), "NaN"},
	{math.Inf(1), "Infinity"},
	{math.Inf(-1), "-Infinity"},
}

func TestFormatNumber(t *testing.T) {
	for _, test := range formatNumberTests {
		assert.Equal(t, test.expected, formatNumber(test.f), "formatting %v", test.f)
	}
}

var parseNumberTests = []struct {
	s        string
	expected float64
}{
	{"", 0},
	{"  ", 0},
	{"12", 12},
	{" 12 ", 12},
	{"-1.5", -1.5},
	{".5", 0.5},
	{"1e3", 1000},
	{"0x1F", 31},
	{"0b101", 5},
	{"0o17", 15},
	{"Infinity", math.Inf(1)},
	{"-Infinity", math.Inf(-1)},
}

func TestParseNumber(t *testing.T) {
	for _, test := range parseNumberTests {
		assert.Equal(t, test.expected, parseNumber(test.s), "parsing %q", test.s)
	}
	for _, s := range []string{"abc", "1a", "1_000", "0xZ", "--1", "1,2"} {
		assert.True(t, math.IsNaN(parseNumber(s)), "parsing %q", s)
	}
}

func TestToInt32(t *testing.T) {
	assert.Equal(t, int32(5), toInt32(1<<32+5))
	assert.Equal(t, int32(-1), toInt32(-1))
	assert.Equal(t, int32(math.MinInt32), toInt32(1<<31))
	assert.Equal(t, int32(3), toInt32(3.9))
	assert.Equal(t, int32(0), toInt32(math.NaN()))
	assert.Equal(t, int32(0), toInt32(math.Inf(1)))
}
