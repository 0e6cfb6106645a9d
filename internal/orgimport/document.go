// Package orgimport loads organization snapshots from YAML files.
//
// A snapshot lists users, people, meetings, initiatives, check-ins,
// feedback campaigns and tolerance rules for one organization.
// Timestamps are RFC3339 or relative to the import time ("now", "-8d",
// "-2w", "-36h"), which keeps demo data fresh.
package orgimport

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Document is the YAML representation of an organization snapshot.
type Document struct {
	Organization      string          `yaml:"organization"`
	Users             []UserDoc       `yaml:"users"`
	People            []PersonDoc     `yaml:"people"`
	OneOnOnes         []OneOnOneDoc   `yaml:"one_on_ones"`
	Initiatives       []InitiativeDoc `yaml:"initiatives"`
	CheckIns          []CheckInDoc    `yaml:"check_ins"`
	FeedbackCampaigns []FeedbackDoc   `yaml:"feedback_campaigns"`
	Rules             []RuleDoc       `yaml:"rules"`
}

type UserDoc struct {
	ID    string `yaml:"id"`
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

type PersonDoc struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	Status       string `yaml:"status"`
	EmployeeType string `yaml:"employee_type"`
	Manager      string `yaml:"manager"`
	User         string `yaml:"user"`
}

type OneOnOneDoc struct {
	ID          string `yaml:"id"`
	Manager     string `yaml:"manager"`
	Report      string `yaml:"report"`
	ScheduledAt string `yaml:"scheduled_at"`
}

type InitiativeDoc struct {
	ID     string   `yaml:"id"`
	Title  string   `yaml:"title"`
	Status string   `yaml:"status"`
	Owners []string `yaml:"owners"`
}

type CheckInDoc struct {
	ID         string `yaml:"id"`
	Initiative string `yaml:"initiative"`
	CreatedAt  string `yaml:"created_at"`
}

type FeedbackDoc struct {
	ID        string `yaml:"id"`
	Target    string `yaml:"target"`
	CreatedAt string `yaml:"created_at"`
}

// RuleDoc is a tolerance rule. Config is re-encoded as JSON.
type RuleDoc struct {
	ID      string         `yaml:"id"`
	Name    string         `yaml:"name"`
	Type    string         `yaml:"type"`
	Enabled *bool          `yaml:"enabled"`
	Config  map[string]any `yaml:"config"`
}

// Parse decodes a snapshot document. Unknown fields are rejected.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("snapshot is empty")
		}
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if doc.Organization == "" {
		return nil, errors.New("snapshot: organization is required")
	}
	return &doc, nil
}
