// Package software provides a CPU implementation of gpucore.Device.
//
// Command lists execute synchronously inside Submit: copies are memcpy,
// dispatches call the kernel's host implementation, draws hand the vertex
// bytes to the target. Because nothing runs asynchronously the device also
// checks the synchronization contract a real driver would silently rely on:
//
//   - binary semaphores: a submission may only wait on a signaled semaphore
//     and may not signal one that is still signaled;
//   - queue ownership: with separate queues, a buffer used by one queue must
//     be released by it and acquired by the other before the other uses it;
//   - barriers: a dispatch or draw may not read a buffer written earlier in
//     the same list without a barrier on that buffer in between.
//
// Violations fail the submission with gpucore.ErrSubmission joined with the
// specific cause. The package registers itself as the "software" backend.
package software
