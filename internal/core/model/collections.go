// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

// OrderedSet is an insertion-order-preserving string set. A value is kept the
// first time it is added and ignored on every later occurrence (case-sensitive
// exact match). It backs the label, on-screen-text and emotion aggregates.
type OrderedSet struct {
	values []string
	seen   map[string]struct{}
}

// NewOrderedSet returns an empty set.
func NewOrderedSet() *OrderedSet {
	return &OrderedSet{
		values: make([]string, 0),
		seen:   make(map[string]struct{}),
	}
}

// Add inserts a value if it has not been seen before. Empty strings are
// dropped; detectors occasionally emit them and they carry no signal.
func (s *OrderedSet) Add(value string) {
	if value == "" {
		return
	}
	if _, ok := s.seen[value]; ok {
		return
	}
	s.seen[value] = struct{}{}
	s.values = append(s.values, value)
}

// AddAll inserts each value in order.
func (s *OrderedSet) AddAll(values []string) {
	for _, v := range values {
		s.Add(v)
	}
}

// Len returns the number of distinct values.
func (s *OrderedSet) Len() int {
	return len(s.values)
}

// Values returns the distinct values in first-seen order, truncated to max
// when max is positive. The returned slice is a copy.
func (s *OrderedSet) Values(max int) []string {
	n := len(s.values)
	if max > 0 && n > max {
		n = max
	}
	return append([]string(nil), s.values[:n]...)
}
