package report

import (
	"encoding/json"
	"fmt"
)

// EncodeRecords serializes records for caching and transport. The format is
// a JSON array of name-tagged objects, the same shape [JSONReporter]
// streams line by line.
func EncodeRecords(records []Record) ([]byte, error) {
	objs := make([]map[string]any, 0, len(records))
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, err
		}
		obj["name"] = r.Name()
		objs = append(objs, obj)
	}
	return json.Marshal(objs)
}

// DecodeRecords deserializes records produced by [EncodeRecords]. An
// unknown record name is an error: the cache entry came from an
// incompatible version and must be discarded by the caller.
func DecodeRecords(data []byte) ([]Record, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(raw))
	for _, msg := range raw {
		var head struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(msg, &head); err != nil {
			return nil, err
		}
		var rec Record
		switch head.Name {
		case "VcsVisible":
			rec = &VcsVisible{}
		case "NonExistentDeps":
			rec = &NonExistentDeps{}
		case "NonsolvableDeps":
			rec = &NonsolvableDeps{}
		case "LaggingStable":
			rec = &LaggingStable{}
		default:
			return nil, fmt.Errorf("unknown record name %q", head.Name)
		}
		if err := json.Unmarshal(msg, rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
