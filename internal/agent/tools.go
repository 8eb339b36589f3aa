package agent

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool is a function the model may call during a turn. Parameters is a
// JSON-schema object; Run receives the model's arguments verbatim.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Run         func(ctx context.Context, args json.RawMessage) (string, error)
}

// Knowledgebase is the retrieval surface the tools use.
type Knowledgebase interface {
	Query(ctx context.Context, query string) (string, error)
	AddSitemap(ctx context.Context, sitemapURL string) (int, error)
}

// Searcher performs a web search and returns formatted results.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// WorkflowTrigger starts a run of a named deployment on the workflow
// platform and returns its run id.
type WorkflowTrigger interface {
	Trigger(ctx context.Context, deployment string, parameters map[string]any) (string, error)
}

// QueryKnowledgebaseTool answers questions from indexed documents.
func QueryKnowledgebaseTool(kb Knowledgebase) Tool {
	return Tool{
		Name:        "query_knowledgebase",
		Description: "Query the knowledgebase and return the most relevant excerpts.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "The search query."},
			},
			"required": []string{"query"},
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("parse arguments: %w", err)
			}
			return kb.Query(ctx, in.Query)
		},
	}
}

// AddSitemapTool ingests every page of a sitemap into the knowledgebase.
func AddSitemapTool(kb Knowledgebase) Tool {
	return Tool{
		Name:        "add_sitemap_to_knowledgebase",
		Description: "Fetch a sitemap URL and index all of its pages into the knowledgebase.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"sitemap_url": map[string]any{"type": "string", "description": "URL of the sitemap.xml."},
			},
			"required": []string{"sitemap_url"},
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				SitemapURL string `json:"sitemap_url"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("parse arguments: %w", err)
			}
			n, err := kb.AddSitemap(ctx, in.SitemapURL)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("indexed %d pages from %s", n, in.SitemapURL), nil
		},
	}
}

// GoogleSearchTool searches the web.
func GoogleSearchTool(s Searcher) Tool {
	return Tool{
		Name:        "google_search",
		Description: "Search the web and return titles, links and snippets.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "The search query."},
			},
			"required": []string{"query"},
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("parse arguments: %w", err)
			}
			return s.Search(ctx, in.Query)
		},
	}
}

// TriggerDeploymentTool starts a workflow run by deployment name.
func TriggerDeploymentTool(wf WorkflowTrigger) Tool {
	return Tool{
		Name:        "trigger_deployment",
		Description: "Trigger a run of a named workflow deployment, optionally with parameters.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"deployment": map[string]any{"type": "string", "description": "Deployment name, e.g. flow/deployment."},
				"parameters": map[string]any{"type": "object", "description": "Run parameters."},
			},
			"required": []string{"deployment"},
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Deployment string         `json:"deployment"`
				Parameters map[string]any `json:"parameters"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("parse arguments: %w", err)
			}
			runID, err := wf.Trigger(ctx, in.Deployment, in.Parameters)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("started run %s of %s", runID, in.Deployment), nil
		},
	}
}
