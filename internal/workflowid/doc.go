/*
Package workflowid provides a structured representation of the identifier
of the scheduler job that drives a DAG workflow.

The canonical format is `cluster.proc`, e.g. `1234.0`. The proc part may be
omitted on input and defaults to 0.
*/
package workflowid
