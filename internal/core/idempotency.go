package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ComputeRequestHash fingerprints a build request as
// SHA-256(canonical_json(body) + method + path) so a replayed
// Idempotency-Key can be checked against the original request.
func ComputeRequestHash(body json.RawMessage, method, path string) string {
	h := sha256.New()
	h.Write(canonicalJSON(body))
	h.Write([]byte(method))
	h.Write([]byte(path))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalJSON re-encodes data with object keys sorted at every depth.
// encoding/json already sorts map keys on output.
func canonicalJSON(data json.RawMessage) []byte {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return data
	}
	b, err := json.Marshal(v)
	if err != nil {
		return data
	}
	return b
}
