// Package agentloop implements a ReAct loop between a language model and a
// stateful code interpreter.
//
// Each iteration asks the model for one reasoning step plus one Python
// snippet, runs the snippet in the interpreter session, and appends a
// bounded digest of the result to the conversation as an observation. The
// loop stops when the model answers with "Final Answer:" or the iteration
// limit is reached.
//
// # Architecture
//
//   - Agent: owns the conversation, the interpreter session handle and the
//     iteration counter, and drives parser, executor and summarizer.
//   - Parser: performs one completion through unifiedllm and turns the text
//     into an Action (final, step or malformed).
//   - DisplaySummary / HistorySummary: project an interpreter result for the
//     user and for the model.
//   - EventEmitter: typed event stream for host applications.
//
// # Quick Start
//
//	client := unifiedllm.NewClient(unifiedllm.WithProvider("groq", adapter))
//	exec := interpreter.New(interpreter.Config{APIKey: key})
//
//	agent := agentloop.NewAgent(client, exec, agentloop.DefaultConfig())
//	defer agent.Close()
//
//	answer, err := agent.Run(ctx, "Load the iris dataset and plot sepal length vs width")
package agentloop
