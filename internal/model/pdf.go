package model

type PDFText struct {
	Text           string `json:"text"`
	PageCount      int    `json:"page_count"`
	CharacterCount int    `json:"character_count"`
}

// PDFMetadata carries the document information dictionary. Empty entries are omitted.
type PDFMetadata struct {
	Title            string `json:"title,omitempty"`
	Author           string `json:"author,omitempty"`
	Subject          string `json:"subject,omitempty"`
	Keywords         string `json:"keywords,omitempty"`
	Creator          string `json:"creator,omitempty"`
	Producer         string `json:"producer,omitempty"`
	CreationDate     string `json:"creation_date,omitempty"`
	ModificationDate string `json:"modification_date,omitempty"`
	PageCount        int    `json:"page_count"`
}

type PDFPageCount struct {
	PageCount int `json:"page_count"`
}

// PDFPageText is the text of one zero-indexed page.
type PDFPageText struct {
	PageNumber     int    `json:"page_number"`
	Text           string `json:"text"`
	CharacterCount int    `json:"character_count"`
}

type PDFMerge struct {
	PDFBase64   string `json:"pdf_base64"`
	PageCount   int    `json:"page_count"`
	SourceCount int    `json:"source_count"`
}

type PDFMergeInfo struct {
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
	SampleCode  string   `json:"sample_code"`
	PDFCount    int      `json:"pdf_count"`
}
