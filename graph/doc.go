// Package graph is a small engine for cyclic workflows over an explicit state type.
//
// A workflow is a set of named nodes, each a function from the current state to a partial
// update, joined by fixed edges and conditional edges. A conditional edge declares every
// destination up front; its router choosing anything else fails the run with ErrInvalidRoute.
// Every node has exactly one outgoing transition, checked by Compile.
//
// Runs are synchronous: one node at a time, each receiving the state merged from all previous
// updates. With a Checkpointer every node's output is saved, which enables History, State,
// interrupts (WithInterruptAfter), UpdateState and Resume.
//
// Node execution publishes BeforeNode and AfterNode events on the ExecutionContext, and stats
// count runs per node under agentloops.KeyNodeRunsFor.
package graph
