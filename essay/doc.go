// Package essay implements the plan, research, draft, critique and revise workflow on top of
// the graph engine.
//
//	planner -> research_plan -> generate -> reflect -> research_critique -> generate -> ... -> END
//
// Every generate increments State.RevisionNumber. The edge after generate ends the run once
// RevisionNumber > MaxRevisions, so a run starting at revision 1 with MaxRevisions 2 drafts
// twice:
//
//	writer := essay.NewWriter(model, tavily)
//	result, err := writer.Run(ctx, "what is the difference between langchain and langsmith", 2)
//	fmt.Println(result.State.Draft)
//
// Research nodes ask the model for a JSON payload {"queries": [...]}, keep at most three
// queries, and append every retrieved snippet to State.Content in call order.
package essay
