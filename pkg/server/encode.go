package server

import (
	"encoding/json"

	"github.com/parona-source/pkgcheck/pkg/report"
	"github.com/parona-source/pkgcheck/pkg/scan"
)

// reportJSON renders a result's records as the name-tagged JSON array the
// record codec uses everywhere else.
func reportJSON(result *scan.Result) (json.RawMessage, error) {
	if len(result.Records) == 0 {
		return json.RawMessage("[]"), nil
	}
	data, err := report.EncodeRecords(result.Records)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
