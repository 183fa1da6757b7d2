package ir

import (
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
)

// ApplyJSONPatch applies an RFC 6902 patch document to the JSON form of
// doc and returns the patched tree. doc is not modified.
func ApplyJSONPatch(doc *Node, patch []byte) (*Node, error) {
	ops, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, fmt.Errorf("decode json patch: %w", err)
	}
	d, err := ToJSON(doc)
	if err != nil {
		return nil, err
	}
	out, err := ops.Apply(d)
	if err != nil {
		return nil, fmt.Errorf("apply json patch: %w", err)
	}
	return FromJSON(out)
}
