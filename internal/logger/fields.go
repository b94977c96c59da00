package logger

// Standard field keys for structured logging. Use these keys consistently
// across all log statements so log lines are greppable across the
// coordinator and every worker.
const (
	// Component identification
	KeyComponent = "component" // "Coordinator" or "Worker"
	KeyNodeID    = "node_id"   // Worker node ID

	// Operation
	KeyOperation = "operation" // create_file, write_block, truncate_file, ...
	KeyCommand   = "command"   // wire command name: INIT, ALLOC_BLOCK, ...
	KeyStatus    = "status"    // wire status name: SUCCESS, NO_SPACE, ...

	// File/block addressing
	KeyFileID       = "fid"
	KeyFileName     = "name"
	KeyBlockIndex   = "block_index"    // file-relative index
	KeyGlobalBlock  = "global_block"   // global block ID
	KeyWorkerIndex  = "worker"         // worker index owning a block
	KeyNumBlocks    = "num_blocks"     // batch size
	KeyLogicalLen   = "logical_blocks" // file's L
	KeyRequestedLen = "requested_size" // bytes requested by caller

	// Capacity accounting
	KeyFreeBlocks  = "free_blocks"
	KeyTotalBlocks = "total_blocks"

	// Error context
	KeyError = "error"
)
