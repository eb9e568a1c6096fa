// Package dag is the execution layer for local pipeline runs. It takes a
// pipeline plan, builds a Directed Acyclic Graph (DAG) of stage nodes, and
// executes the nodes concurrently according to their dependencies.
package dag
