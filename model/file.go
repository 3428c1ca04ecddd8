package model

// CloudFile identifies a source object that has been listed but not yet
// downloaded. Metadata holds only the attributes the connector's Selector
// asked for.
type CloudFile struct {
	ID             string         `json:"id"`
	FileIdentifier string         `json:"file_identifier"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// LocalFile is a downloaded object on local disk. The path is only valid
// for the duration of the download callback that receives it.
type LocalFile struct {
	ID       string         `json:"id"`
	Path     string         `json:"path"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
