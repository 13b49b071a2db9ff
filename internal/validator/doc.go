// Package validator collects findings about a registry of MCP server
// descriptors and renders them for a terminal or as JSON.
//
// Findings come from two places: the per-descriptor rules in
// internal/mcp/validator, converted with [FromDescriptors], and checks that
// need the environment, such as [CheckCommands] resolving stdio commands on
// the search path.
//
//	result := validator.FromDescriptors(mcpvalidator.New().Validate(reg))
//	validator.CheckCommands(result, reg, pathEnv)
//	if err := validator.NewReporter(os.Stdout, validator.FormatText).Report(result); err != nil {
//		return err
//	}
package validator
