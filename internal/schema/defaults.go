package schema

// DefaultSchemas returns a small set of ready-to-run schemas so the
// engine has something to register at startup. Schema *authoring* is
// out of scope (spec.md §1 treats schema definition files as an
// external concern); these two cover both output shapes from
// original_source/config/document_schemas.py's two patterns.
func DefaultSchemas() []*Schema {
	return []*Schema{documentMetadataSchema(), reportSummarySchema()}
}

// documentMetadataSchema is the flat pattern: one record per document.
func documentMetadataSchema() *Schema {
	return &Schema{
		Key:         "document_metadata",
		Name:        "Document Metadata",
		Description: "Top-level metadata and summary for a single document",
		Fields: []Field{
			{Name: "title", Kind: KindString, Description: "Main title of the document", Required: true},
			{Name: "author", Kind: KindOptional, InnerKind: KindString, Description: "Author if mentioned"},
			{Name: "summary", Kind: KindString, Description: "Brief summary of the document's content", Required: true},
			{Name: "document_date", Kind: KindOptional, InnerKind: KindDate, Description: "Date on the document, if present"},
		},
	}
}

// reportSummarySchema is the nested pattern: a document may contain
// any number of report items, each expanded into its own result row.
func reportSummarySchema() *Schema {
	itemFields := []Field{
		{Name: "title", Kind: KindString, Description: "Title of the report item", Required: true},
		{Name: "summary", Kind: KindString, Description: "Summary of the report item", Required: true},
		{Name: "category", Kind: KindEnum, Description: "Category of the report item", EnumValues: []string{"financial", "operational", "compliance", "other"}},
	}
	return &Schema{
		Key:         "report_summary",
		Name:        "Report Summary",
		Description: "Every distinct report contained in a document, extracted as separate rows",
		Fields: []Field{
			{
				Name:     "item",
				Kind:     KindList,
				Required: true,
				Inner:    &Schema{Fields: itemFields},
			},
		},
	}
}
