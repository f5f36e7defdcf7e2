// SPDX-License-Identifier: EPL-2.0

// Package ogg implements the Ogg page layer: page parsing with checksum
// verification and resynchronization, packet reassembly across pages and a
// minimal page writer.
//
// Unlike a general purpose demuxer it keeps page offsets, so callers can
// build a seek index from a header-only scan (NewScanner) and later restart
// reading at a page boundary.
package ogg
