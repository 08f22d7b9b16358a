package jilparser

import (
	"reflect"
	"testing"
)

const sampleJIL = `/* Nightly warehouse schedule */

insert_job: EXTRACT_SALES   job_type: CMD
command: /opt/etl/extract_sales.sh
machine: etl-prod-01

# inventory lands late, allow a 12 hour lookback
insert_job: LOAD_WAREHOUSE   job_type: CMD
condition: s(EXTRACT_SALES) & s(EXTRACT_INVENTORY, 12.0)
box_name: NIGHTLY_BOX

insert_job: BUILD_REPORTS   job_type: CMD
condition: s(LOAD_WAREHOUSE)

insert_job: NOTIFY_TEAM   job_type: CMD
condition: f(LOAD_WAREHOUSE)
`

func TestParseJobs(t *testing.T) {
	want := []jilJob{
		{Name: "EXTRACT_SALES"},
		{Name: "LOAD_WAREHOUSE", Condition: "s(EXTRACT_SALES) & s(EXTRACT_INVENTORY, 12.0)", Box: "NIGHTLY_BOX"},
		{Name: "BUILD_REPORTS", Condition: "s(LOAD_WAREHOUSE)"},
		{Name: "NOTIFY_TEAM", Condition: "f(LOAD_WAREHOUSE)"},
	}

	got := parseJobs(sampleJIL)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseJobs() = %+v, want %+v", got, want)
	}
}

func TestParseJobsIgnoresAttributesBeforeFirstJob(t *testing.T) {
	got := parseJobs("condition: s(ORPHAN)\nbox_name: LOST_BOX\n\ninsert_job: REAL_JOB\n")
	want := []jilJob{{Name: "REAL_JOB"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseJobs() = %+v, want %+v", got, want)
	}
}

func TestConditionJobs(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		want      []string
	}{
		{"empty", "", nil},
		{"single success predicate", "s(JOB_A)", []string{"JOB_A"}},
		{"and chain", "s(JOB_A) & f(JOB_B)", []string{"JOB_A", "JOB_B"}},
		{"or chain", "s(JOB_A) | d(JOB_B)", []string{"JOB_A", "JOB_B"}},
		{"lookback qualifier", "s(JOB_A, 12.0)", []string{"JOB_A"}},
		{"spaced predicate", "s ( JOB_A )", []string{"JOB_A"}},
		{"terminated and notrunning", "t(JOB_A) & n(JOB_B)", []string{"JOB_A", "JOB_B"}},
		{"dotted and numbered names", "s(APP.JOB_01)", []string{"APP.JOB_01"}},
		{"word ending in predicate letter", "done(JOB_A)", nil},
		{"unknown predicate letter", "v(JOB_A)", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := conditionJobs(tt.condition)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("conditionJobs(%q) = %v, want %v", tt.condition, got, tt.want)
			}
		})
	}
}

func TestDependenciesFor(t *testing.T) {
	jobs := parseJobs(sampleJIL)

	tests := []struct {
		name   string
		target string
		want   []Dependency
	}{
		{
			name:   "job inside a box with conditions both ways",
			target: "LOAD_WAREHOUSE",
			want: []Dependency{
				{Job: "EXTRACT_SALES", Type: typeUpstream, Relation: relationCondition},
				{Job: "EXTRACT_INVENTORY", Type: typeUpstream, Relation: relationCondition},
				{Job: "NIGHTLY_BOX", Type: typeUpstream, Relation: relationBox},
				{Job: "BUILD_REPORTS", Type: typeDownstream, Relation: relationCondition},
				{Job: "NOTIFY_TEAM", Type: typeDownstream, Relation: relationCondition},
			},
		},
		{
			name:   "box job sees members as downstream",
			target: "NIGHTLY_BOX",
			want: []Dependency{
				{Job: "LOAD_WAREHOUSE", Type: typeDownstream, Relation: relationBoxMember},
			},
		},
		{
			name:   "leaf job has downstream only",
			target: "EXTRACT_SALES",
			want: []Dependency{
				{Job: "LOAD_WAREHOUSE", Type: typeDownstream, Relation: relationCondition},
			},
		},
		{
			name:   "unknown job",
			target: "NO_SUCH_JOB",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dependenciesFor(jobs, tt.target)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("dependenciesFor(%q) = %+v, want %+v", tt.target, got, tt.want)
			}
		})
	}
}
