package download

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// digest hashes the bytes copied to the temp file and compares the sum
// with the expected hex string once the body is exhausted.
type digest struct {
	h    hash.Hash
	want string
}

func newDigest(h hash.Hash, want string) *digest {
	return &digest{h: h, want: strings.ToLower(strings.TrimSpace(want))}
}

func (d *digest) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// writer returns w teeing into the digest, or w unchanged when no
// checksum was requested.
func (d *digest) writer(w io.Writer) io.Writer {
	if d == nil {
		return w
	}
	d.h.Reset()

	return io.MultiWriter(w, d)
}

func (d *digest) verify() error {
	if d == nil {
		return nil
	}

	if got := hex.EncodeToString(d.h.Sum(nil)); got != d.want {
		return &Error{
			Err:    ErrChecksumMismatch,
			Detail: fmt.Sprintf("want %s, got %s", d.want, got),
		}
	}

	return nil
}
