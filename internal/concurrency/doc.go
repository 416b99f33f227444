// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Execution contexts for wldispatch: a FIFO task looper with optional OS
// thread locking and background priority, used for the dispatch thread and
// for the target context that receives routed input.
package concurrency
