package catalog

// Catalog is the published, ordered list of assessment questions. Answer indexes refer to
// positions in Questions.
type Catalog struct {
	Version     string     `json:"version" yaml:"version"`
	Title       string     `json:"title" yaml:"title"`
	LastUpdated string     `json:"lastUpdated,omitempty" yaml:"lastUpdated,omitempty"`
	Questions   []Question `json:"questions" yaml:"questions"`
}

type Question struct {
	ID    string `json:"id" yaml:"id"`
	Text  string `json:"text" yaml:"text"`
	Theme string `json:"theme" yaml:"theme"`
}
