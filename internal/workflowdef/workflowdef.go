// Package workflowdef does best-effort parsing of a workflow-definition
// YAML document into the tag set the coordinator cares about (§6). It
// never fails submission — a file that cannot be opened or parsed yields
// an empty tag set, matching the permissive behaviour of the source
// system this was distilled from.
package workflowdef

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// P2PTag and OfflineTag are the two reserved tag values that mark a
// workflow eligible for this coordination system.
const (
	P2PTag     = "p2p-workflow"
	OfflineTag = "offline-workflow"
)

type document struct {
	Name   string   `yaml:"name"`
	Labels []string `yaml:"labels"`
	Jobs   map[string]job `yaml:"jobs"`
}

type job struct {
	Name   string   `yaml:"name"`
	Labels []string `yaml:"labels"`
}

// Parsed holds the result of parsing a workflow definition: its
// human-readable name (if any) and the derived tag set.
type Parsed struct {
	Name string
	Tags []string
}

// ParseFile reads path as a workflow-definition YAML document and
// extracts tags. If the file cannot be opened or parsed, it returns a
// zero-value Parsed and the error, so the caller can record it on the
// workflow's Error field while still completing submission.
func ParseFile(path string) (Parsed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Parsed{}, err
	}
	return ParseBytes(data)
}

// ParseBytes parses raw YAML content, as ParseFile does.
func ParseBytes(data []byte) (Parsed, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Parsed{}, err
	}

	tagSet := make(map[string]struct{})
	for _, l := range doc.Labels {
		tagSet[l] = struct{}{}
	}

	names := []string{doc.Name}
	for _, j := range doc.Jobs {
		names = append(names, j.Name)
		for _, l := range j.Labels {
			tagSet[l] = struct{}{}
		}
	}

	for _, n := range names {
		lower := strings.ToLower(n)
		if strings.Contains(lower, P2PTag) {
			tagSet[P2PTag] = struct{}{}
		}
		if strings.Contains(lower, OfflineTag) {
			tagSet[OfflineTag] = struct{}{}
		}
	}

	tags := make([]string, 0, len(tagSet))
	for t := range tagSet {
		tags = append(tags, t)
	}
	return Parsed{Name: doc.Name, Tags: tags}, nil
}
