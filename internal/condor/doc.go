// Package condor adapts an HTCondor schedd to the scheduler.Adapter
// interface.
//
// A DAGMan workflow is visible to the schedd as one DAGMan job whose ClassAd
// carries per-status node counters (DAG_NodesReady, DAG_NodesDone, ...) and
// as one job per submitted node, linked back through DAGManJobId. The
// Adapter rebuilds one node.Record per node from those two views: counters
// give the DAGMan status of every node, node jobs refine the queued ones
// into idle, running or held. Once the DAGMan job leaves the queue its
// final counters and exit code are read from the history.
//
// Where the ClassAds come from is a Source. CLI runs condor_q and
// condor_history; the restd package talks to the HTCondor REST daemon.
package condor
