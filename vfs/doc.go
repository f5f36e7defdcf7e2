// SPDX-License-Identifier: EPL-2.0

// Package vfs provides the byte sources the decoders read from.
//
// A File is a reader that can also report its position, peek at upcoming
// bytes without consuming them and tell whether it is a network stream.
// Local files and file:// URLs are seekable; http(s):// URLs are streaming
// and return ErrNotSeekable from Seek.
//
//	f, err := vfs.Open(ctx, "http://radio.example/live.ogg")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	head, _ := f.Peek(64)
package vfs
