package model

// Status is the outcome of a heuristic check.
type Status string

const (
	StatusGood    Status = "good"
	StatusWarning Status = "warning"
)

// HeadingRecord is one h1-h6 element with its concatenated, trimmed text.
type HeadingRecord struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

// MetaTagMap maps a meta property name to its content value.
type MetaTagMap map[string]string

type TitleCheck struct {
	Title          string `json:"title"`
	Length         int    `json:"length"`
	MinRecommended int    `json:"min_recommended"`
	MaxRecommended int    `json:"max_recommended"`
	Status         Status `json:"status"`
	Recommendation string `json:"recommendation"`
}

type DescriptionCheck struct {
	Description    string `json:"description"`
	Length         int    `json:"length"`
	MinRecommended int    `json:"min_recommended"`
	MaxRecommended int    `json:"max_recommended"`
	Status         Status `json:"status"`
	Recommendation string `json:"recommendation"`
}

type HeadingAnalysis struct {
	Headings       []HeadingRecord `json:"headings"`
	TotalHeadings  int             `json:"total_headings"`
	H1Count        int             `json:"h1_count"`
	Status         Status          `json:"status"`
	Recommendation string          `json:"recommendation"`
}

type OpenGraphCheck struct {
	FoundTags      map[string]string `json:"found_tags"`
	MissingTags    []string          `json:"missing_tags"`
	Status         Status            `json:"status"`
	Recommendation string            `json:"recommendation"`
}

type KeywordDensity struct {
	Keyword               string  `json:"keyword"`
	KeywordCount          int     `json:"keyword_count"`
	TotalWords            int     `json:"total_words"`
	DensityPercent        float64 `json:"density_percent"`
	RecommendedMinPercent float64 `json:"recommended_min_percent"`
	RecommendedMaxPercent float64 `json:"recommended_max_percent"`
	Status                Status  `json:"status"`
	Recommendation        string  `json:"recommendation"`
}
