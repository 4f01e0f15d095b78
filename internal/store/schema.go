package store

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Index field names. These are the public query vocabulary: bare terms
// search title+content, and any of these can be used as a field:value
// qualifier.
const (
	FieldTitle   = "title"
	FieldContent = "content"
	FieldTag     = "tag"
	FieldFile    = "file"
	FieldPath    = "path"
	FieldRef     = "ref"
	FieldLang    = "lang"
	FieldCode    = "code"
	FieldLastmod = "lastmod"
)

// buildMapping constructs the immutable index mapping. It is built once
// at store-open and shared by reference across every operation.
//
// title and content are the only fields folded into the default search
// fields; everything else is reachable through an explicit qualifier.
// path is a stored keyword: the exact canonical identity of a record.
func buildMapping() mapping.IndexMapping {
	doc := mapping.NewDocumentMapping()

	defaultText := mapping.NewTextFieldMapping()
	defaultText.Store = false
	defaultText.IncludeInAll = true

	fieldText := mapping.NewTextFieldMapping()
	fieldText.Store = false
	fieldText.IncludeInAll = false

	keyword := mapping.NewKeywordFieldMapping()
	keyword.Store = false
	keyword.IncludeInAll = false

	storedKeyword := mapping.NewKeywordFieldMapping()
	storedKeyword.Store = true
	storedKeyword.IncludeInAll = false

	num := mapping.NewNumericFieldMapping()
	num.Store = true
	num.IncludeInAll = false

	doc.AddFieldMappingsAt(FieldTitle, defaultText)
	doc.AddFieldMappingsAt(FieldContent, defaultText)
	doc.AddFieldMappingsAt(FieldTag, keyword)
	doc.AddFieldMappingsAt(FieldFile, fieldText)
	doc.AddFieldMappingsAt(FieldPath, storedKeyword)
	doc.AddFieldMappingsAt(FieldRef, fieldText)
	doc.AddFieldMappingsAt(FieldLang, fieldText)
	doc.AddFieldMappingsAt(FieldCode, fieldText)
	doc.AddFieldMappingsAt(FieldLastmod, num)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}
