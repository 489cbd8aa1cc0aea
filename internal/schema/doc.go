// Package schema validates harness scenario files against a CUE schema.
//
// The schema is embedded from scenario.cue. A scenario document is
// extracted from YAML, unified with #Scenario and checked for
// concreteness, so typos in field names and unknown assertion types fail
// before the harness builds anything.
package schema
