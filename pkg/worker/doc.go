// Package worker runs pipeline executions on a fixed-size pool. Each
// worker handles one document at a time; parallelism across documents
// is the pool size. Resume requeues executions an earlier process left
// unfinished.
package worker
