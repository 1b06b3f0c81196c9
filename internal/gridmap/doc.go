// Package gridmap owns the 2D probabilistic occupancy grid.
//
// Responsibilities: quantising metric coordinates into cell keys, the sparse
// key-to-node cell store, ray traversal, log-odds sensor fusion, bounding
// box limits, change detection and snapshot export.
// Key types: Grid, Key, KeyRay, Node, SensorModel, Snapshot.
//
// The store is a flat hash map of touched cells. A cell that was never
// written is unknown, which is distinct from free.
//
// A Grid is not safe for concurrent use. InsertPointCloudRays fans ray
// computation out over the grid's own lanes and serialises the writes
// internally; callers that share a Grid between goroutines must lock it
// themselves (see internal/mapper).
//
// No SQL/database code is allowed in this package.
package gridmap
