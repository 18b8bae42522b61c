package biz

// PartitionDescriptor carries the configuration-level identity of a
// partition: its name and capacity ceiling.
type PartitionDescriptor struct {
	Name          Partition
	CapacityBytes int64
	Enabled       bool
}

// PartitionSet resolves partition names to stores once at configuration
// time. Fan-out iterates the declared order; lookups never fall back to a
// default store.
type PartitionSet struct {
	stores      map[Partition]Store
	descriptors map[Partition]PartitionDescriptor
}

// NewPartitionSet builds the partition mapping. Every partition in
// PartitionOrder must be present in stores (disabled partitions get a
// neutral store, not a missing entry).
func NewPartitionSet(stores map[Partition]Store, descriptors map[Partition]PartitionDescriptor) *PartitionSet {
	return &PartitionSet{
		stores:      stores,
		descriptors: descriptors,
	}
}

// Store returns the store for a partition name; ok is false for unknown
// names so fan-out degrades to an empty collection list.
func (s *PartitionSet) Store(p Partition) (Store, bool) {
	st, ok := s.stores[p]
	return st, ok
}

// Descriptor returns the configuration descriptor for a partition.
func (s *PartitionSet) Descriptor(p Partition) (PartitionDescriptor, bool) {
	d, ok := s.descriptors[p]
	return d, ok
}

// Ordered returns the fixed fan-out order over all known partitions.
func (s *PartitionSet) Ordered() []Partition {
	return PartitionOrder
}
