package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/slatehub/slate-core/internal/infrastructure/config"
)

// defaultTasksBaseURL is the Todoist REST endpoint for active tasks.
const defaultTasksBaseURL = "https://api.todoist.com/rest/v2/tasks"

// defaultMaxTasks caps how many tasks the payload carries.
const defaultMaxTasks = 8

// tasksFetcher pulls the active task list from a Todoist-compatible
// REST API using bearer token auth.
type tasksFetcher struct {
	client   *http.Client
	baseURL  string
	token    string
	maxTasks int
}

func newTasksFetcher(cfg config.ProviderConfig) (*tasksFetcher, error) {
	token := cfg.Credentials["token"]
	if token == "" {
		return nil, fmt.Errorf("tasks provider: credentials.token is required")
	}

	return &tasksFetcher{
		client:   newHTTPClient(),
		baseURL:  stringOption(cfg.Options, "base_url", defaultTasksBaseURL),
		token:    token,
		maxTasks: intOption(cfg.Options, "max_tasks", defaultMaxTasks),
	}, nil
}

type todoistTask struct {
	Content  string `json:"content"`
	Priority int    `json:"priority"`
	Due      *struct {
		Date string `json:"date"`
	} `json:"due"`
}

// Fetch retrieves active tasks, highest priority first.
func (f *tasksFetcher) Fetch(ctx context.Context) (Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building tasks request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.token)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching tasks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("tasks API rejected credentials (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tasks API returned status %d", resp.StatusCode)
	}

	var tasks []todoistTask
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		return nil, fmt.Errorf("decoding tasks response: %w", err)
	}

	// Todoist priority 4 is highest; stable sort keeps API order within
	// the same priority.
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Priority > tasks[j].Priority
	})

	if len(tasks) > f.maxTasks {
		tasks = tasks[:f.maxTasks]
	}

	items := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		item := map[string]any{
			"title":    t.Content,
			"priority": t.Priority,
		}
		if t.Due != nil {
			item["due"] = t.Due.Date
		}
		items = append(items, item)
	}

	return Payload{
		"tasks": items,
		"count": len(items),
	}, nil
}
