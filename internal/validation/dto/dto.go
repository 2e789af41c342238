package dto

import "time"

// LogFilter selects validation log rows. Empty fields match everything.
type LogFilter struct {
	App      string
	Model    string
	MinLevel int
}

// Counts maps a level name to the number of failures at that level.
type Counts map[string]int

type RunnerResult struct {
	App      string `json:"app"`
	Model    string `json:"model"`
	Failures int    `json:"failures"`
	Error    string `json:"error,omitempty"`
	Skipped  bool   `json:"skipped,omitempty"`
}

// PassSummary reports one validation pass.
type PassSummary struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Runners    []RunnerResult `json:"runners"`
}

type ModelSummary struct {
	App    string `json:"app"`
	Model  string `json:"model"`
	Counts Counts `json:"counts"`
	Total  int    `json:"total"`
}

type AppSummary struct {
	App    string         `json:"app"`
	Counts Counts         `json:"counts"`
	Total  int            `json:"total"`
	Models []ModelSummary `json:"models"`
}

// Overview is the landing page: every app with its models.
type Overview struct {
	MinLevel string       `json:"min_level"`
	Apps     []AppSummary `json:"apps"`
}

type AppView struct {
	MinLevel string `json:"min_level"`
	AppSummary
}

type LogEntry struct {
	ID       string    `json:"id"`
	Level    string    `json:"level"`
	Check    string    `json:"check"`
	Message  string    `json:"message"`
	LastSeen time.Time `json:"last_seen"`
}

type ValidatorGroup struct {
	ObjectValidator string     `json:"object_validator"`
	Counts          Counts     `json:"counts"`
	Logs            []LogEntry `json:"logs"`
}

// ModelView lists one model's failures grouped by object validator.
type ModelView struct {
	App        string           `json:"app"`
	Model      string           `json:"model"`
	MinLevel   string           `json:"min_level"`
	Counts     Counts           `json:"counts"`
	Validators []ValidatorGroup `json:"validators"`
}
