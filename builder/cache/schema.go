package cache

// BoltDB bucket names
const (
	BucketArtifacts = "artifacts" // {namespace}:{key} -> Artifact
	BucketMeta      = "meta"      // schema_version
	BucketStats     = "stats"     // build_count, last_prune

	KeySchemaVersion = "schema_version"
	KeyBuildCount    = "build_count"
	KeyLastPrune     = "last_prune"
)

// Artifact namespaces. Each one is also a store category.
const (
	NamespaceCritical = "critical"
	NamespaceSocial   = "social"
)

// AllBuckets returns all bucket names for initialization
func AllBuckets() []string {
	return []string{
		BucketArtifacts,
		BucketMeta,
		BucketStats,
	}
}

// AllNamespaces lists the namespaces reported by Stats and swept by Prune.
func AllNamespaces() []string {
	return []string{NamespaceCritical, NamespaceSocial}
}
