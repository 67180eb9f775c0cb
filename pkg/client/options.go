package client

import "encoding/json"

// TaskOptions is the subset of aria2 input options this client types
// directly. aria2 expects every value as a string on the wire, so numeric
// and boolean fields carry the ",string" tag. Options without a field here
// go in Extra and are merged into the same JSON object.
type TaskOptions struct {
	Dir                    string   `json:"dir,omitempty"`
	Out                    string   `json:"out,omitempty"`
	GID                    string   `json:"gid,omitempty"`
	Split                  int      `json:"split,omitempty,string"`
	Header                 []string `json:"header,omitempty"`
	AllProxy               string   `json:"all-proxy,omitempty"`
	Referer                string   `json:"referer,omitempty"`
	UserAgent              string   `json:"user-agent,omitempty"`
	Checksum               string   `json:"checksum,omitempty"`
	Continue               bool     `json:"continue,omitempty,string"`
	Pause                  bool     `json:"pause,omitempty,string"`
	MaxTries               int      `json:"max-tries,omitempty,string"`
	Timeout                int      `json:"timeout,omitempty,string"`
	ConnectTimeout         int      `json:"connect-timeout,omitempty,string"`
	MaxConnectionPerServer int      `json:"max-connection-per-server,omitempty,string"`
	MaxDownloadLimit       string   `json:"max-download-limit,omitempty"`
	MaxUploadLimit         string   `json:"max-upload-limit,omitempty"`
	LowestSpeedLimit       string   `json:"lowest-speed-limit,omitempty"`

	// Extra holds options not covered by the typed fields.
	Extra map[string]any `json:"-"`
}

var taskOptionKeys = []string{
	"dir", "out", "gid", "split", "header", "all-proxy", "referer",
	"user-agent", "checksum", "continue", "pause", "max-tries", "timeout",
	"connect-timeout", "max-connection-per-server", "max-download-limit",
	"max-upload-limit", "lowest-speed-limit",
}

// MarshalJSON merges Extra into the typed fields.
func (o *TaskOptions) MarshalJSON() ([]byte, error) {
	type alias TaskOptions
	data, err := json.Marshal((*alias)(o))
	if err != nil {
		return nil, err
	}
	if len(o.Extra) == 0 {
		return data, nil
	}
	var merged map[string]any
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range o.Extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON fills the typed fields and captures everything else in
// Extra, so getOption/changeOption round-trip.
func (o *TaskOptions) UnmarshalJSON(data []byte) error {
	type alias TaskOptions
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*o = TaskOptions(a)
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for _, k := range taskOptionKeys {
		delete(m, k)
	}
	if len(m) == 0 {
		return nil
	}
	o.Extra = make(map[string]any, len(m))
	for k, raw := range m {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		o.Extra[k] = v
	}
	return nil
}

// optionsParam renders options for a params list; aria2 wants an object even
// when the caller has none.
func optionsParam(o *TaskOptions) any {
	if o == nil {
		return struct{}{}
	}
	return o
}
