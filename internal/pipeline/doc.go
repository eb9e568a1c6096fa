// Package pipeline defines the stage plan derived from a job-submission
// document: which stages run, in what dependency order, with which
// command lines and resource requests. The plan is the single source of
// truth for both the local executor and the scheduler artifact generator.
package pipeline
