package main

import (
	"Sift/mcp"
)

// MCPCmd serves the extraction tools over stdio.
type MCPCmd struct {
	ExtractFlags `embed:""`
}

func (c *MCPCmd) Run(env *Env) error {
	app, err := NewApp(c.apply(env.Config))
	if err != nil {
		return err
	}
	defer app.Close()

	server := mcp.NewMCPServer(app, ModuleLogger("mcp"))
	return server.Serve(env.Ctx, env.Stdin, env.Stdout)
}
