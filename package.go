// Package agentloops provides two LLM agent control loops and the primitives they share.
//
// The first loop is ReAct (reason, act, observe): the model is called, its output is scanned for
// a line of the form
//
//	Action: <name>: <argument>
//
// and the named local action is run. Its result is fed back as "Observation: <result>" on the
// next turn. Output with no action line is the final answer. See the agents/react package.
//
// The second loop is a cyclic workflow graph that plans, researches, drafts, critiques and
// revises an essay until a revision bound is exceeded. See the graph and essay packages.
//
// # Core Types
//
//   - [Model]: language model contract, built on LangChainGo message types.
//   - [Retriever]: web search returning text snippets.
//   - [Action]: a named string-to-string function the ReAct loop can invoke.
//   - [Session]: system instruction plus append-only message history.
//   - [ExecutionContext]: Go context, stats, event log and event dispatch for one run.
//
// # Quick Start: ReAct
//
//	model := models.NewLCGWrapper(llm).WithModelName("gpt-4o")
//	registry, err := actions.NewRegistry(actions.Calculate(), actions.AverageDogWeight())
//	if err != nil {
//	    return err
//	}
//	agent := react.NewAgent(model, registry)
//	result, err := agent.Run(ctx, "How much does a toy poodle weigh?", 5)
//	if err != nil {
//	    return err
//	}
//	if result.Status == react.StatusFinal {
//	    fmt.Println(result.Answer)
//	}
//
// # Quick Start: Essay Writer
//
//	writer := essay.NewWriter(model, tavilyClient)
//	result, err := writer.Run(ctx, "what is the difference between langchain and langsmith", 2)
//
// # Observability
//
// Every Model, Retriever and action call publishes Before/After events on the
// [ExecutionContext]. Register subscribers (loggers, metrics, tracing) with an events.Registry.
//
// # Errors
//
// Fatal conditions are reported with sentinel errors ([ErrUnknownAction], [ErrMalformedOutput],
// [ErrMissingCredential]) and [TransportError]. Reaching a turn limit is not an error; it is
// reported as [TerminationTurnLimit].
package agentloops
