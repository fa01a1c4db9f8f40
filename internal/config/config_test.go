package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimal = `
pipelines:
  - name: acme
    collector: greenhouse
    company: Acme
    board_token: acme
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "jobsync.db" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Sync.BatchSize != 500 || cfg.Sync.AbandonAfter != 6*time.Hour || cfg.Sync.DeactivateAfter != 0 {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
	if cfg.HTTP.Timeout != 30*time.Second || cfg.HTTP.MaxRetries != 3 || cfg.HTTP.RetryBaseDelay != 2*time.Second {
		t.Errorf("HTTP = %+v", cfg.HTTP)
	}
	if cfg.HTTP.RateLimit.MinDelay != time.Second {
		t.Errorf("RateLimit.MinDelay = %v", cfg.HTTP.RateLimit.MinDelay)
	}
	if cfg.Schedule.Timezone != "Asia/Kolkata" || len(cfg.Schedule.Entries) != 2 {
		t.Errorf("Schedule = %+v", cfg.Schedule)
	}
	if cfg.Schedule.Entries[0].Cron != "0 3 * * *" || cfg.Schedule.Entries[0].Mode != "full" {
		t.Errorf("first default entry = %+v", cfg.Schedule.Entries[0])
	}
	if cfg.Notification.Type != "log" || cfg.Notification.On != "failure" {
		t.Errorf("Notification = %+v", cfg.Notification)
	}
	if cfg.Publish.Subject != "jobs.new" || cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("Publish/Cache = %+v / %+v", cfg.Publish, cfg.Cache)
	}
	if len(cfg.Pipelines) != 1 || !cfg.Pipelines[0].Enabled {
		t.Errorf("pipelines default to enabled: %+v", cfg.Pipelines)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	t.Setenv("ADZUNA_APP_ID", "my-id")
	t.Setenv("ADZUNA_APP_KEY", "my-key")

	content := `
database:
  driver: postgres
  url: postgres://localhost/jobs
  schema: ingest
sync:
  batch_size: 200
  abandon_after: 2h
  deactivate_after: 720h
http:
  timeout: 10s
  max_retries: 0
  retry_base_delay: 500ms
  rate_limit:
    min_delay: 2s
    overrides:
      api.adzuna.com: 5s
schedule:
  timezone: UTC
  run_on_start: true
  entries:
    - cron: "*/30 * * * *"
      mode: incremental
      pipelines: [adzuna-it]
pipelines:
  - name: adzuna-it
    collector: Adzuna
    app_id: ${ADZUNA_APP_ID}
    app_key: ${ADZUNA_APP_KEY}
    search_terms: [golang, "data engineer"]
    resolve_apply_urls: true
    filters:
      locations: [Bengaluru, Remote]
  - name: careers
    collector: browser
    enabled: false
    company: Acme
    urls: [https://acme.example/careers]
    selectors:
      item: li.job
      title: a
      link: a@href
    wait_selector: ul.jobs
    render_timeout: 1m
notification:
  type: slack
  webhook_url: https://hooks.slack.com/services/T/B/X
  on: always
publish:
  nats_url: nats://localhost:4222
cache:
  redis_url: redis://localhost:6379/0
  ttl: 1h
skills:
  extra: [Temporal, dbt]
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Driver != "postgres" || cfg.Database.Schema != "ingest" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Sync.BatchSize != 200 || cfg.Sync.DeactivateAfter != 720*time.Hour {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
	if cfg.HTTP.MaxRetries != 0 {
		t.Errorf("explicit max_retries 0 must be kept, got %d", cfg.HTTP.MaxRetries)
	}
	if got := cfg.HTTP.RateLimit.MinDelayFor("api.adzuna.com"); got != 5*time.Second {
		t.Errorf("MinDelayFor(adzuna) = %v", got)
	}
	if got := cfg.HTTP.RateLimit.MinDelayFor("boards-api.greenhouse.io"); got != 2*time.Second {
		t.Errorf("MinDelayFor(other) = %v", got)
	}
	if cfg.Schedule.Location != time.UTC || !cfg.Schedule.RunOnStart || len(cfg.Schedule.Entries) != 1 {
		t.Errorf("Schedule = %+v", cfg.Schedule)
	}

	p, ok := cfg.Pipeline("adzuna-it")
	if !ok {
		t.Fatal("adzuna-it not found")
	}
	if p.Collector != CollectorAdzuna || p.AppID != "my-id" || p.AppKey != "my-key" {
		t.Errorf("adzuna pipeline = %+v", p)
	}
	if len(p.Filters.Locations) != 2 {
		t.Errorf("Filters = %+v", p.Filters)
	}

	b, _ := cfg.Pipeline("careers")
	if b.Enabled || b.Selectors.Link != "a@href" || b.RenderTimeout != time.Minute {
		t.Errorf("browser pipeline = %+v", b)
	}
	if got := cfg.EnabledPipelines(); len(got) != 1 || got[0].Name != "adzuna-it" {
		t.Errorf("EnabledPipelines = %+v", got)
	}
	if cfg.Notification.On != "always" || cfg.Cache.TTL != time.Hour || len(cfg.Skills.Extra) != 2 {
		t.Errorf("Notification/Cache/Skills = %+v / %+v / %+v", cfg.Notification, cfg.Cache, cfg.Skills)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "pipelines: [broken"))
	if err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no pipelines", "database:\n  driver: sqlite\n", "at least one pipeline"},
		{"all disabled", `
pipelines:
  - name: a
    collector: lever
    company: A
    board_token: a
    enabled: false
`, "at least one pipeline"},
		{"unknown collector", `
pipelines:
  - name: a
    collector: monster
`, "unknown collector"},
		{"duplicate name", minimal + `
  - name: acme
    collector: jsonfile
    path: jobs.json
`, "defined twice"},
		{"adzuna without key", `
pipelines:
  - name: a
    collector: adzuna
    app_id: x
    search_terms: [go]
`, "app_key"},
		{"gem without board", `
pipelines:
  - name: a
    collector: gem
    company: A
`, "board_token"},
		{"html without selectors", `
pipelines:
  - name: a
    collector: html
    urls: [https://x.example]
`, "selectors.item"},
		{"postgres without url", minimal + "database:\n  driver: postgres\n", "database.url"},
		{"bad driver", minimal + "database:\n  driver: mysql\n", "database.driver"},
		{"bad duration", minimal + "sync:\n  abandon_after: soon\n", "sync.abandon_after"},
		{"bad mode", minimal + "schedule:\n  entries:\n    - cron: \"@daily\"\n      mode: partial\n", "mode"},
		{"schedule unknown pipeline", minimal + "schedule:\n  entries:\n    - cron: \"@daily\"\n      pipelines: [ghost]\n", "ghost"},
		{"bad timezone", minimal + "schedule:\n  timezone: Mars/Olympus\n", "schedule.timezone"},
		{"slack without webhook", minimal + "notification:\n  type: slack\n", "webhook_url is required"},
		{"slack wrong host", minimal + "notification:\n  type: slack\n  webhook_url: https://example.com/hook\n", "hooks.slack.com"},
		{"bad trigger", minimal + "notification:\n  on: sometimes\n", "notification.on"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load: expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if got := ResolvePath(""); got != "config.yaml" {
		t.Errorf("default = %q", got)
	}
	t.Setenv(EnvConfigPath, "/etc/jobsync.yaml")
	if got := ResolvePath(""); got != "/etc/jobsync.yaml" {
		t.Errorf("env = %q", got)
	}
	if got := ResolvePath("local.yaml"); got != "local.yaml" {
		t.Errorf("flag = %q", got)
	}
}

func TestLoad_MicrosoftNeedsNoCredentials(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
pipelines:
  - name: msft
    collector: Microsoft
    search_text: site reliability
    search_location: India
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, ok := cfg.Pipeline("msft")
	if !ok {
		t.Fatal("pipeline msft not found")
	}
	if p.Collector != CollectorMicrosoft || p.SearchText != "site reliability" || p.SearchLocation != "India" {
		t.Errorf("pipeline = %+v", p)
	}
}
