package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tradelens/analytics-backend/pkg/types"
)

// BundleError is a typed validation error raised at the ingestion boundary.
// Malformed numeric fields fail here instead of propagating silent zeros
// into aggregate statistics.
type BundleError struct {
	Reason string
	Err    error
}

func (e *BundleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid bundle: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid bundle: %s", e.Reason)
}

func (e *BundleError) Unwrap() error { return e.Err }

// ParseBundle decodes either input form: the structured bundle object or the
// legacy flat array of accountType-tagged trades. Numeric fields may arrive
// as JSON numbers or numeric strings; anything unparseable is a BundleError.
func ParseBundle(data []byte) (*types.Bundle, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, &BundleError{Reason: "empty body"}
	}

	if trimmed[0] == '[' {
		var legacy []types.LegacyTrade
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, &BundleError{Reason: "malformed legacy trade array", Err: err}
		}
		return types.BundleFromLegacy(legacy), nil
	}

	var bundle types.Bundle
	if err := json.Unmarshal(trimmed, &bundle); err != nil {
		return nil, &BundleError{Reason: "malformed bundle", Err: err}
	}
	return &bundle, nil
}
