// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import (
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
)

// fileHashBlockSize bounds how much of the file is held in memory at once
// while hashing, per spec.md §4.6.
const fileHashBlockSize = 1024

// FileHash computes the salted content hash used for disk inserts when the
// node denies direct directory access: base64(sha256(connectionIdentifier +
// "-" + identifier + file contents)), with the file streamed in
// fileHashBlockSize chunks rather than read whole. ClientPutDisk does not
// call it; a caller that needs the hash computes it with this function.
func FileHash(connectionIdentifier, identifier string, r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.WriteString(h, connectionIdentifier+"-"+identifier); err != nil {
		return "", errors.Wrap(err, "hash salt")
	}

	buf := make([]byte, fileHashBlockSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := h.Write(buf[:n]); werr != nil {
				return "", errors.Wrap(werr, "hash block")
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrap(err, "read file")
		}
	}

	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}
