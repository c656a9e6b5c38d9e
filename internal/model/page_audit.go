package model

// PageAudit combines every SEO heuristic for a fetched page.
type PageAudit struct {
	URL         string           `json:"url"`
	HTMLVersion string           `json:"html_version"`
	Title       TitleCheck       `json:"title"`
	Description DescriptionCheck `json:"description"`
	Headings    HeadingAnalysis  `json:"headings"`
	OpenGraph   OpenGraphCheck   `json:"open_graph"`
	Links       LinkStats        `json:"links"`
	Status      Status           `json:"status"`
	Warnings    int              `json:"warnings"`
}

type LinkStats struct {
	Checked           bool `json:"checked"`
	InternalCount     int  `json:"internal_count"`
	ExternalCount     int  `json:"external_count"`
	InaccessibleCount int  `json:"inaccessible_count"`
	UncheckedCount    int  `json:"unchecked_count"`
}
