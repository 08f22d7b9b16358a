package jilparser

import (
	"regexp"
	"strings"
)

// jilJob is one job definition pulled out of a JIL file
type jilJob struct {
	Name      string
	Condition string
	Box       string
}

// conditionJobPattern matches the status predicates JIL conditions are built
// from: s(JOB), f(JOB), d(JOB), t(JOB), n(JOB), optionally with a lookback
// qualifier like s(JOB, 12.0)
var conditionJobPattern = regexp.MustCompile(`\b[sfdtn]\s*\(\s*([A-Za-z0-9_.$#-]+)\s*(?:,\s*[0-9.]+\s*)?\)`)

// parseJobs scans JIL text into job definitions. Each insert_job line opens
// a block; condition and box_name attributes attach to the open block.
// Unrecognized attributes and comments are ignored, which is how Autosys
// itself treats a JIL stream.
func parseJobs(content string) []jilJob {
	var jobs []jilJob
	current := -1

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "/*") || strings.HasPrefix(line, "#") {
			continue
		}

		if value, ok := attributeValue(line, "insert_job"); ok {
			jobs = append(jobs, jilJob{Name: firstField(value)})
			current = len(jobs) - 1
			continue
		}
		if current < 0 {
			continue
		}
		if value, ok := attributeValue(line, "condition"); ok {
			jobs[current].Condition = value
		} else if value, ok := attributeValue(line, "box_name"); ok {
			jobs[current].Box = firstField(value)
		}
	}

	return jobs
}

// attributeValue extracts the value of a "name: value" JIL attribute line
func attributeValue(line, name string) (string, bool) {
	if !strings.HasPrefix(line, name) {
		return "", false
	}
	rest := strings.TrimLeft(strings.TrimPrefix(line, name), " \t")
	if !strings.HasPrefix(rest, ":") {
		return "", false
	}
	return strings.TrimSpace(rest[1:]), true
}

// firstField trims trailing inline attributes off a JIL value, e.g.
// "JOB_A   job_type: CMD" yields "JOB_A"
func firstField(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// conditionJobs lists the job names referenced by a JIL condition expression
func conditionJobs(condition string) []string {
	if condition == "" {
		return nil
	}
	var jobs []string
	for _, match := range conditionJobPattern.FindAllStringSubmatch(condition, -1) {
		jobs = append(jobs, match[1])
	}
	return jobs
}

// dependenciesFor derives the target job's immediate dependency set from
// parsed job definitions. The target's condition predicates and its parent
// box run before it (upstream); jobs conditioned on the target and members
// of the target box run after it (downstream).
func dependenciesFor(jobs []jilJob, target string) []Dependency {
	var deps []Dependency

	for _, job := range jobs {
		if job.Name != target {
			continue
		}
		for _, upstream := range conditionJobs(job.Condition) {
			deps = append(deps, Dependency{Job: upstream, Type: typeUpstream, Relation: relationCondition})
		}
		if job.Box != "" {
			deps = append(deps, Dependency{Job: job.Box, Type: typeUpstream, Relation: relationBox})
		}
	}

	for _, job := range jobs {
		if job.Name == target {
			continue
		}
		for _, referenced := range conditionJobs(job.Condition) {
			if referenced == target {
				deps = append(deps, Dependency{Job: job.Name, Type: typeDownstream, Relation: relationCondition})
			}
		}
		if job.Box == target {
			deps = append(deps, Dependency{Job: job.Name, Type: typeDownstream, Relation: relationBoxMember})
		}
	}

	return deps
}
