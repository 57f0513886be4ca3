package supervisor

// Topology is the process layout decided once at startup.
type Topology struct {
	// Workers is the number of worker processes. Zero means the master
	// serves in process.
	Workers int
	// ClusteringSupported is the engine capability the decision was based on.
	ClusteringSupported bool
}

// SingleProcess reports whether the master serves in process.
func (t Topology) SingleProcess() bool {
	return t.Workers == 0
}

// DecideTopology clamps requested to zero or more and forces it to zero when
// the engine does not support clustering.
func DecideTopology(requested int, clusteringSupported bool) Topology {
	workers := max(0, requested)
	if !clusteringSupported {
		workers = 0
	}
	return Topology{Workers: workers, ClusteringSupported: clusteringSupported}
}
