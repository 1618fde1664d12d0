// Package react implements the ReAct (Reasoning and Acting) agent loop.
//
// # Overview
//
// Each turn makes exactly one model call:
//
//  1. The pending input (the task on the first turn, the previous observation afterwards) is
//     appended to the session as a user message.
//  2. The model is called with the whole session and the system prompt; its text is appended
//     as an assistant message.
//  3. The text is scanned line by line for "Action: <name>: <argument>". The first match wins.
//  4. No match: the run terminates and the full text is the answer.
//  5. A match naming an unregistered action aborts the run with agentloops.ErrUnknownAction.
//  6. Otherwise the action runs and "Observation: <result>" becomes the next input.
//
// Reaching the turn limit is not an error. The run returns StatusIncomplete.
//
// # Example
//
//	registry := actions.MustRegistry(actions.Calculate(), actions.AverageDogWeight())
//	agent := react.NewAgent(model, registry).
//	    WithInferenceParams(agentloops.InferenceParams{Temperature: 0, TopK: 1})
//
//	result, err := agent.Run(ctx, "I have 2 dogs, a border collie and a scottish terrier. "+
//	    "What is their combined weight?", 5)
//
// # Multi-turn Sessions
//
// RunSession continues an existing session, so a caller can keep asking follow-up questions
// with the full history preserved:
//
//	session, _ := agent.NewSession()
//	first, _ := agent.RunSession(ctx, session, "How much does a toy poodle weigh?", 5)
//	second, _ := agent.RunSession(ctx, session, "And a border collie?", 5)
package react
