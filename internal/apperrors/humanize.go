package apperrors

import (
	"fmt"
	"strings"
)

// ValidationIssue is one raw path+type+message tuple produced by a
// schema validator (internal/schema), prior to humanization.
type ValidationIssue struct {
	Path  []interface{} // e.g. []interface{}{"item", 0, "vendor"}
	Type  string        // e.g. "string_type", "missing", "enum"
	Msg   string
	Input interface{}
}

// HumanIssue is a ValidationIssue rendered for a client.
type HumanIssue struct {
	Field             string                 `json:"field"`
	Message           string                 `json:"message"`
	Row               *int                   `json:"row,omitempty"`
	TechnicalDetails  map[string]interface{} `json:"technical_details"`
}

// Humanize converts a batch of raw validator issues into the
// `{field, message, row?, technical_details}` shape §7 requires, plus
// a short tips list keyed by the distinct error types observed.
func Humanize(issues []ValidationIssue) (human []HumanIssue, tips []string) {
	seenTips := make(map[string]bool)
	for _, issue := range issues {
		h := HumanIssue{
			Field:   fieldName(issue.Path),
			Message: simplifyMessage(issue.Type, issue.Msg, issue.Input),
			Row:     rowNumber(issue.Path),
			TechnicalDetails: map[string]interface{}{
				"location":         issue.Path,
				"type":             issue.Type,
				"original_message": issue.Msg,
			},
		}
		human = append(human, h)
		if tip := tipFor(issue.Type); tip != "" && !seenTips[tip] {
			seenTips[tip] = true
			tips = append(tips, tip)
		}
	}
	return human, tips
}

func fieldName(path []interface{}) string {
	for i := len(path) - 1; i >= 0; i-- {
		if s, ok := path[i].(string); ok && s != "item" {
			return titleCase(s)
		}
	}
	return "Unknown Field"
}

func rowNumber(path []interface{}) *int {
	for _, p := range path {
		if n, ok := p.(int); ok {
			row := n + 1
			return &row
		}
	}
	return nil
}

func titleCase(fieldName string) string {
	words := strings.Split(strings.ReplaceAll(fieldName, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func simplifyMessage(errType, msg string, input interface{}) string {
	switch {
	case errType == "float_type" || errType == "int_type" || errType == "number_type":
		if input == nil {
			return "Expected a number, but got no value"
		}
		return fmt.Sprintf("Expected a number, but got: %v", input)
	case errType == "string_type" || errType == "str_type":
		if input == nil {
			return "Expected text, but got no value"
		}
		return fmt.Sprintf("Expected text, but got: %T", input)
	case errType == "bool_type" || errType == "boolean_type":
		return fmt.Sprintf("Expected true/false, but got: %v", input)
	case errType == "list_type":
		return fmt.Sprintf("Expected a list, but got: %T", input)
	case strings.Contains(errType, "date"):
		return fmt.Sprintf("Invalid date/time format: %v", input)
	case errType == "missing":
		return "This required field is missing"
	case errType == "enum":
		return "Invalid value for this field"
	case strings.Contains(errType, "min_length"):
		return "Value is too short"
	case strings.Contains(errType, "max_length"):
		return "Value is too long"
	default:
		if msg == "" {
			return "This field did not match the expected format"
		}
		return msg
	}
}

func tipFor(errType string) string {
	switch {
	case errType == "missing":
		return "Fields marked required must appear for every record; confirm the document actually contains that information."
	case strings.Contains(errType, "enum"):
		return "Enum fields only accept one of the schema's declared values."
	case errType == "float_type" || errType == "int_type" || errType == "number_type":
		return "Numeric fields reject text; strip currency symbols or units before extraction."
	case strings.Contains(errType, "date"):
		return "Date/time fields expect ISO 8601; ambiguous formats in the source document often cause this."
	default:
		return ""
	}
}
