package model

// RawRecord is an adapter-shaped company record before normalization.
// Fields are best-effort; the normalizer coerces them into the canonical
// lead shape and extracts contacts and tags from FreeText.
type RawRecord struct {
	Name      string            `json:"name"`
	Country   string            `json:"country,omitempty"`
	Website   string            `json:"website,omitempty"`
	FreeText  string            `json:"free_text,omitempty"`
	Source    string            `json:"source"`
	SourceURL string            `json:"source_url,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}
