package service

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"mcptoolbox/internal/model"
	"mcptoolbox/internal/util/analyzer"
)

const (
	TitleMinLength       = 30
	TitleMaxLength       = 60
	DescriptionMinLength = 120
	DescriptionMaxLength = 160
	KeywordDensityMin    = 1.0
	KeywordDensityMax    = 3.0
)

// RequiredOpenGraphTags are checked in this order by CheckOpenGraphTags.
var RequiredOpenGraphTags = []string{"og:title", "og:description", "og:image", "og:url"}

// CheckMetaTitle checks the title length against the 30-60 character range.
func CheckMetaTitle(title string) model.TitleCheck {
	length := utf8.RuneCountInString(title)

	var status model.Status
	var recommendation string
	switch {
	case length >= TitleMinLength && length <= TitleMaxLength:
		status = model.StatusGood
		recommendation = "Title length is within the recommended range."
	case length < TitleMinLength:
		status = model.StatusWarning
		recommendation = fmt.Sprintf("Title is too short (%d chars). Aim for %d-%d characters to improve click-through rates.",
			length, TitleMinLength, TitleMaxLength)
	default:
		status = model.StatusWarning
		recommendation = fmt.Sprintf("Title is too long (%d chars). Search engines may truncate it. Aim for %d-%d characters.",
			length, TitleMinLength, TitleMaxLength)
	}

	return model.TitleCheck{
		Title:          title,
		Length:         length,
		MinRecommended: TitleMinLength,
		MaxRecommended: TitleMaxLength,
		Status:         status,
		Recommendation: recommendation,
	}
}

// CheckMetaDescription checks the description length against the 120-160 character range.
func CheckMetaDescription(description string) model.DescriptionCheck {
	length := utf8.RuneCountInString(description)

	var status model.Status
	var recommendation string
	switch {
	case length >= DescriptionMinLength && length <= DescriptionMaxLength:
		status = model.StatusGood
		recommendation = "Description length is within the recommended range."
	case length < DescriptionMinLength:
		status = model.StatusWarning
		recommendation = fmt.Sprintf("Description is too short (%d chars). Aim for %d-%d characters to maximize SERP real estate.",
			length, DescriptionMinLength, DescriptionMaxLength)
	default:
		status = model.StatusWarning
		recommendation = fmt.Sprintf("Description is too long (%d chars). Search engines may truncate it. Aim for %d-%d characters.",
			length, DescriptionMinLength, DescriptionMaxLength)
	}

	return model.DescriptionCheck{
		Description:    description,
		Length:         length,
		MinRecommended: DescriptionMinLength,
		MaxRecommended: DescriptionMaxLength,
		Status:         status,
		Recommendation: recommendation,
	}
}

// AnalyzeHeadingStructure reports the headings of doc and whether it has exactly one H1.
func AnalyzeHeadingStructure(doc string) model.HeadingAnalysis {
	headings := analyzer.ExtractHeadings(doc)

	h1Count := 0
	for _, h := range headings {
		if h.Tag == "h1" {
			h1Count++
		}
	}

	var status model.Status
	var recommendation string
	switch {
	case h1Count == 1:
		status = model.StatusGood
		recommendation = "Page has exactly one H1 tag, which is ideal for SEO."
	case h1Count == 0:
		status = model.StatusWarning
		recommendation = "No H1 tag found. Every page should have exactly one H1 tag that describes the primary topic."
	default:
		status = model.StatusWarning
		recommendation = fmt.Sprintf("Found %d H1 tags. Best practice is to have exactly one H1 per page to clearly signal the main topic to search engines.", h1Count)
	}

	return model.HeadingAnalysis{
		Headings:       headings,
		TotalHeadings:  len(headings),
		H1Count:        h1Count,
		Status:         status,
		Recommendation: recommendation,
	}
}

// CheckOpenGraphTags reports which of the required Open Graph properties doc declares.
func CheckOpenGraphTags(doc string) model.OpenGraphCheck {
	metaTags := analyzer.ExtractMetaTags(doc)

	found := make(map[string]string)
	missing := make([]string, 0)
	for _, tag := range RequiredOpenGraphTags {
		if value := metaTags[tag]; value != "" {
			found[tag] = value
		} else {
			missing = append(missing, tag)
		}
	}

	result := model.OpenGraphCheck{
		FoundTags:   found,
		MissingTags: missing,
	}
	if len(missing) == 0 {
		result.Status = model.StatusGood
		result.Recommendation = "All required Open Graph tags are present."
	} else {
		result.Status = model.StatusWarning
		result.Recommendation = fmt.Sprintf("Missing Open Graph tags: %s. These tags are important for rich previews when your page is shared on social media.",
			strings.Join(missing, ", "))
	}
	return result
}

// AnalyzeKeywordDensity measures how much of text is taken up by keyword.
//
// Both inputs are case folded. Occurrences are non-overlapping substring
// matches, so a keyword may match inside a longer word.
func AnalyzeKeywordDensity(text, keyword string) model.KeywordDensity {
	textFolded := cases.Fold().String(text)
	keywordFolded := strings.TrimSpace(cases.Fold().String(keyword))

	totalWords := len(strings.Fields(textFolded))
	keywordCount := strings.Count(textFolded, keywordFolded)
	keywordWords := len(strings.Fields(keywordFolded))

	density := 0.0
	if totalWords > 0 {
		density = roundTo(float64(keywordCount*keywordWords)/float64(totalWords)*100, 2)
	}

	var status model.Status
	var recommendation string
	switch {
	case density >= KeywordDensityMin && density <= KeywordDensityMax:
		status = model.StatusGood
		recommendation = fmt.Sprintf("Keyword density of %s%% is within the recommended %s-%s%% range.",
			formatPercent(density), formatPercent(KeywordDensityMin), formatPercent(KeywordDensityMax))
	case density < KeywordDensityMin:
		status = model.StatusWarning
		recommendation = fmt.Sprintf("Keyword density of %s%% is below the recommended %s-%s%% range. Consider naturally incorporating the keyword more often.",
			formatPercent(density), formatPercent(KeywordDensityMin), formatPercent(KeywordDensityMax))
	default:
		status = model.StatusWarning
		recommendation = fmt.Sprintf("Keyword density of %s%% is above the recommended %s-%s%% range. This may be seen as keyword stuffing by search engines.",
			formatPercent(density), formatPercent(KeywordDensityMin), formatPercent(KeywordDensityMax))
	}

	return model.KeywordDensity{
		Keyword:               keyword,
		KeywordCount:          keywordCount,
		TotalWords:            totalWords,
		DensityPercent:        density,
		RecommendedMinPercent: KeywordDensityMin,
		RecommendedMaxPercent: KeywordDensityMax,
		Status:                status,
		Recommendation:        recommendation,
	}
}

// roundTo rounds the exact binary value of v to places decimals, ties to
// even, so 0.125 becomes 0.12 and 2.675 becomes 2.67.
func roundTo(v float64, places int) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return rounded
}

// formatPercent keeps at least one decimal place, so 60 renders as "60.0".
func formatPercent(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
