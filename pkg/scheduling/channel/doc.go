/*
Package channel provides the two bounded, non-blocking message channels the
work-stealing protocol is built on.

SPSC carries a single steal reply from a victim back to the originator of a
steal request: exactly one producer (the satisfying worker) and one consumer
(the originator). MPSC carries steal requests to a worker: any peer may
produce, only the targeted worker consumes.

Neither channel ever blocks. Set reports false when the ring is full and Get
reports false when it is empty; callers size the rings so that a failed Set
can only mean a protocol violation.
*/
package channel
