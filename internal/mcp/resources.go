package mcp

// Resource defines an MCP resource
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

const (
	uriSummary   = "matchcompat://summary"
	uriQueue     = "matchcompat://queue"
	uriConstants = "matchcompat://constants"
)

// ResourceDefinitions lists all available resources
var ResourceDefinitions = []Resource{
	{
		URI:         uriSummary,
		Name:        "Compatibility Summary",
		Description: "Users, answers and stored pair coverage",
		MimeType:    "text/plain",
	},
	{
		URI:         uriQueue,
		Name:        "Recalculation Queue",
		Description: "Job counts by status and the oldest pending jobs",
		MimeType:    "text/plain",
	},
	{
		URI:         uriConstants,
		Name:        "Scoring Constants",
		Description: "The constants scores are currently computed with",
		MimeType:    "text/plain",
	},
}

type resourcesListResult struct {
	Resources []Resource `json:"resources"`
}

type readResourceParams struct {
	URI string `json:"uri"`
}

type readResourceResult struct {
	Contents []resourceContent `json:"contents"`
}

type resourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}
