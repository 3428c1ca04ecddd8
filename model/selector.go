package model

// Selector routes source attributes: ToEmbed names what feeds embedding
// generation, ToMetadata what rides along as vector metadata.
type Selector struct {
	ToEmbed    []string `json:"to_embed"`
	ToMetadata []string `json:"to_metadata"`
}

// WantsMetadata reports whether key is routed into vector metadata.
func (s Selector) WantsMetadata(key string) bool {
	for _, k := range s.ToMetadata {
		if k == key {
			return true
		}
	}
	return false
}
