// CLAUDE:SUMMARY Registers editkeeper MCP tools — scribe_propose, scribe_apply, scribe_read.
package editkeeper

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/scribe/kit"
)

// RegisterMCP registers editkeeper tools on an MCP server.
func (k *Keeper) RegisterMCP(srv *mcp.Server) {
	k.registerProposeTool(srv)
	k.registerApplyTool(srv)
	k.registerReadTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

var editSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"root":          map[string]any{"type": "string", "description": "Symbolic root key"},
		"path":          map[string]any{"type": "string", "description": "Path relative to the root"},
		"mode":          map[string]any{"type": "string", "enum": []any{"single", "first", "all"}, "description": "Occurrence mode for find/replace (default: single)"},
		"find":          map[string]any{"type": "string", "description": "Literal text to find (mutually exclusive with patch_unified)"},
		"replace":       map[string]any{"type": "string", "description": "Replacement text"},
		"patch_unified": map[string]any{"type": "string", "description": "Unified diff to apply instead of find/replace"},
	},
	"required": []any{"root", "path"},
}

func (k *Keeper) registerProposeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "scribe_propose",
		Description: "Stage file edits without writing. Returns per-file unified diffs, content hashes and approval tokens for a later scribe_apply.",
		InputSchema: inputSchema(map[string]any{
			"edits": map[string]any{"type": "array", "items": editSchema, "description": "Edits to stage, one per file change"},
		}, []string{"edits"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r ProposeRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, k.ProposeEndpoint(), decode)
}

func (k *Keeper) registerApplyTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "scribe_apply",
		Description: "Apply a previously proposed patch. Rejected with hash_mismatch or approval_id_mismatch if the file changed since the proposal; set dry_run to validate without writing.",
		InputSchema: inputSchema(map[string]any{
			"root":          map[string]any{"type": "string", "description": "Symbolic root key"},
			"path":          map[string]any{"type": "string", "description": "Path relative to the root"},
			"patch_unified": map[string]any{"type": "string", "description": "The patch_unified returned by scribe_propose"},
			"expected_hash": map[string]any{"type": "string", "description": "The expected_hash returned by scribe_propose"},
			"approval_id":   map[string]any{"type": "string", "description": "The approval_id returned by scribe_propose"},
			"dry_run":       map[string]any{"type": "boolean", "description": "Run every check without writing"},
		}, []string{"root", "path", "patch_unified", "expected_hash", "approval_id"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r ApplyRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, k.ApplyEndpoint(), decode)
}

func (k *Keeper) registerReadTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "scribe_read",
		Description: "Read a file's current content plus its content hash and EOL style, for deriving fresh edits after a conflict.",
		InputSchema: inputSchema(map[string]any{
			"root": map[string]any{"type": "string", "description": "Symbolic root key"},
			"path": map[string]any{"type": "string", "description": "Path relative to the root"},
		}, []string{"root", "path"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r ReadRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, k.ReadEndpoint(), decode)
}
