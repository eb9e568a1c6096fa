// Package condor renders HTCondor submission artifacts for a pipeline
// plan: one submit description per stage plus a DAGMan file expressing
// the stage dependencies. The artifacts are written into the run
// directory; submitting them is left to condor_submit_dag.
package condor
