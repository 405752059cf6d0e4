package ingest

import (
	"encoding/json"
	"sort"
)

// Decision summarizes the automatic actions taken for one notification.
// Downloads is reported per locale for multi-locale phase events; otherwise
// Download carries the single answer.
type Decision struct {
	RequestTranslations []string
	Download            bool
	Downloads           map[string]bool
}

// PerLocale reports whether Downloads is the active download field.
func (d Decision) PerLocale() bool {
	return d.Downloads != nil
}

// Empty is the decision for ignored and unroutable events.
func Empty() Decision {
	return Decision{RequestTranslations: []string{}}
}

type decisionResult struct {
	RequestTranslations []string `json:"request_translations"`
	Download            any      `json:"download"`
}

type decisionEnvelope struct {
	Result decisionResult `json:"result"`
}

// MarshalJSON renders {"result":{"request_translations":[...],"download":bool|{locale:bool}}}.
func (d Decision) MarshalJSON() ([]byte, error) {
	requests := append([]string{}, d.RequestTranslations...)
	sort.Strings(requests)
	result := decisionResult{RequestTranslations: requests, Download: d.Download}
	if d.PerLocale() {
		result.Download = d.Downloads
	}
	return json.Marshal(decisionEnvelope{Result: result})
}

// UnmarshalJSON accepts both download shapes.
func (d *Decision) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Result struct {
			RequestTranslations []string        `json:"request_translations"`
			Download            json.RawMessage `json:"download"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	out := Decision{RequestTranslations: envelope.Result.RequestTranslations}
	if out.RequestTranslations == nil {
		out.RequestTranslations = []string{}
	}
	if len(envelope.Result.Download) > 0 && envelope.Result.Download[0] == '{' {
		if err := json.Unmarshal(envelope.Result.Download, &out.Downloads); err != nil {
			return err
		}
	} else if len(envelope.Result.Download) > 0 {
		if err := json.Unmarshal(envelope.Result.Download, &out.Download); err != nil {
			return err
		}
	}
	*d = out
	return nil
}
