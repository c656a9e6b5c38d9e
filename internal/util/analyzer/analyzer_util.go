package analyzer

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"mcptoolbox/internal/model"
)

var (
	Html5Doctype = regexp.MustCompile(`(?i)<!DOCTYPE\s+html>`)
	Html4Doctype = regexp.MustCompile(`(?i)<!DOCTYPE\s+HTML\s+PUBLIC\s+"[^"]*//DTD\s+HTML\s+4`)
	XhtmlDoctype = regexp.MustCompile(`(?i)<!DOCTYPE\s+html\s+PUBLIC\s+"[^"]*//DTD\s+XHTML`)
)

// UnknownHTMLVersion is reported when no known doctype is found.
const UnknownHTMLVersion = "Unknown (possibly HTML5 without explicit DOCTYPE)"

// DetectHTMLVersion inspects the doctype in the first 1000 bytes.
func DetectHTMLVersion(rawHTML string) string {
	docStart := rawHTML
	if len(rawHTML) > 1000 {
		docStart = rawHTML[:1000]
	}

	switch {
	case Html5Doctype.MatchString(docStart):
		return "HTML5"
	case XhtmlDoctype.MatchString(docStart):
		return "XHTML 1.0"
	case Html4Doctype.MatchString(docStart):
		return "HTML 4.01"
	default:
		return UnknownHTMLVersion
	}
}

// IsHeadingTag reports whether name is h1 through h6.
func IsHeadingTag(name string) bool {
	return len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6'
}

// ExtractHeadings returns every heading in document order of its opening tag.
//
// Only one heading is tracked at a time. A heading opened while another is
// still open starts a new record and the earlier one stops collecting text,
// so <h1>A<h2>B</h2></h1> yields [{h1 A} {h2 B}]. The contents of raw text
// elements (title, textarea, script, style) are never parsed as markup.
func ExtractHeadings(doc string) []model.HeadingRecord {
	headings := make([]model.HeadingRecord, 0)
	current := ""

	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return headings
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); IsHeadingTag(tag) {
				current = tag
				headings = append(headings, model.HeadingRecord{Tag: tag})
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if tag := string(name); IsHeadingTag(tag) {
				headings = append(headings, model.HeadingRecord{Tag: tag})
				current = ""
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if current != "" && string(name) == current {
				current = ""
			}
		case html.TextToken:
			if current != "" {
				headings[len(headings)-1].Text += strings.TrimSpace(string(z.Text()))
			}
		}
	}
}

// ExtractMetaTags maps meta property names to their content.
func ExtractMetaTags(doc string) model.MetaTagMap {
	return ExtractMeta(doc, "property")
}

// ExtractMeta maps the keyAttr value of each meta tag to its content.
// Tags with an empty key or empty content are skipped; later tags overwrite
// earlier ones with the same key.
func ExtractMeta(doc, keyAttr string) model.MetaTagMap {
	tags := make(model.MetaTagMap)

	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return tags
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if string(name) != "meta" || !hasAttr {
			continue
		}
		attrs := TagAttrs(z)
		key := AttrValue(attrs, keyAttr)
		content := AttrValue(attrs, "content")
		if key != "" && content != "" {
			tags[key] = content
		}
	}
}

// ExtractTitle returns the trimmed text of the first <title> element.
func ExtractTitle(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	inTitle := false
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(sb.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) == "title" {
				inTitle = true
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if inTitle && string(name) == "title" {
				return strings.TrimSpace(sb.String())
			}
		case html.TextToken:
			if inTitle {
				sb.Write(z.Text())
			}
		}
	}
}

// TagAttrs copies the attributes of the current tag token in source order.
// Call it after TagName and at most once per token.
func TagAttrs(z *html.Tokenizer) []html.Attribute {
	var attrs []html.Attribute
	for {
		key, val, more := z.TagAttr()
		attrs = append(attrs, html.Attribute{Key: string(key), Val: string(val)})
		if !more {
			return attrs
		}
	}
}

// AttrValue returns the value of the last attribute named key, or "".
func AttrValue(attrs []html.Attribute, key string) string {
	val := ""
	for _, attr := range attrs {
		if attr.Key == key {
			val = attr.Val
		}
	}
	return val
}

// ExtractLinks collects non-empty href values of <a> tags in document order.
func ExtractLinks(doc string) []string {
	links := make([]string, 0)
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return links
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if string(name) != "a" || !hasAttr {
			continue
		}
		if href := AttrValue(TagAttrs(z), "href"); href != "" {
			links = append(links, href)
		}
	}
}
