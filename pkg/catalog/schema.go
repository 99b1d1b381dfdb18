// pkg/catalog/schema.go
package catalog

// ActionCatalog is the published inventory of every user-invokable
// onboarding action: which stage it belongs to, the shape of its input,
// and the error codes it can surface.
type ActionCatalog struct {
	Version     string   `json:"version"`
	LastUpdated string   `json:"lastUpdated"`
	Actions     []Action `json:"actions"`
}

// Action describes one stage action.
type Action struct {
	ID          string                 `json:"id"`
	DisplayName string                 `json:"displayName"`
	Description string                 `json:"description"`
	Stage       string                 `json:"stage"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	ErrorCodes  []string               `json:"errorCodes"`
	Retryable   bool                   `json:"retryable"`
}
