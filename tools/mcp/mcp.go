// Package mcp bridges tools provided by external MCP server subprocesses
// into the agent's tool registry.
package mcp

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/SuperCmdLabs/SuperCmd-sub001/errors"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Client manages the connection to a single MCP server subprocess.
type Client struct {
	name  string
	cmd   *exec.Cmd
	conn  *mcpsdk.ClientSession
	tools []*ServerTool
}

// NewClient starts the MCP server subprocess and discovers its tools.
func NewClient(name, command string, args []string) (*Client, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr
	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "supercmd-agent", Version: "v1.0.0"}, nil)
	ctx := context.Background()
	conn, err := mcpClient.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		cmd.Process.Kill()
		return nil, errors.Wrapf(err, "failed to connect to MCP server '%s'", name)
	}

	client := &Client{name: name, cmd: cmd, conn: conn}

	listParams := &mcpsdk.ListToolsParams{}
	for {
		toolList, err := conn.ListTools(ctx, listParams)
		if err != nil {
			cmd.Process.Kill()
			return nil, errors.Wrapf(err, "failed to list tools from MCP server '%s'", name)
		}
		for _, t := range toolList.Tools {
			client.tools = append(client.tools, &ServerTool{
				serverName:  name,
				toolName:    t.Name,
				description: t.Description,
				client:      client,
			})
		}
		if toolList.NextCursor == "" {
			break
		}
		listParams.Cursor = toolList.NextCursor
	}

	return client, nil
}

// Tools returns the tools discovered on this server.
func (c *Client) Tools() []*ServerTool {
	return c.tools
}

// Stop terminates the MCP server subprocess.
func (c *Client) Stop() error {
	if c.conn != nil {
		c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		return c.cmd.Process.Kill()
	}
	return nil
}

// ServerTool is a tool available from an external MCP server. It satisfies
// the tools.Tool interface of the parent package. Side effects of external
// tools are unknown, so every call goes through the confirmation gate.
type ServerTool struct {
	serverName  string
	toolName    string
	description string
	client      *Client
}

func (t *ServerTool) Name() string        { return t.toolName }
func (t *ServerTool) Description() string { return t.description }
func (t *ServerTool) Dangerous() bool     { return true }

func (t *ServerTool) ConfirmationMessage(args map[string]any) string {
	return fmt.Sprintf("Call tool %q on MCP server %q?", t.toolName, t.serverName)
}

// Execute sends the call to the MCP server and concatenates the text content
// of the result.
func (t *ServerTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	result, err := t.client.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.toolName,
		Arguments: args,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to call tool '%s'", t.toolName)
	}
	out := ""
	for _, c := range result.Content {
		if text, ok := c.(*mcpsdk.TextContent); ok {
			out += text.Text
		}
	}
	return out, nil
}
