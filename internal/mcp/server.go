package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/orchestrator"
)

// Server wraps the MCP server instance.
type Server struct {
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server with tools backed by engine.
func NewServer(version string, engine *orchestrator.Engine) *Server {
	s := server.NewMCPServer("cocoscan", version, server.WithLogging())

	registerTools(s, &handlers{engine: engine})

	return &Server{
		mcpServer: s,
	}
}

// Start runs the server in stdio mode (blocking).
func (s *Server) Start(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.mcpServer)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools adds all supported tools to the server.
func registerTools(s *server.MCPServer, h *handlers) {
	// Tool: diagnose_leaf
	diagnoseTool := mcp.NewTool("diagnose_leaf",
		mcp.WithDescription("Diagnose a coconut leaf photo. Returns the full diagnosis JSON (classification, color/texture/pattern evidence, nutrient flags, treatment plan, progression) plus a review prompt. Pass user_id to save the scan and include the history trend."),
		mcp.WithString("image_path",
			mcp.Required(),
			mcp.Description("Path to a PNG, JPEG, GIF, BMP, TIFF or WebP image on the server host"),
		),
		mcp.WithNumber("user_id",
			mcp.Description("Save the scan for this user and compare with their history"),
		),
		mcp.WithString("notes",
			mcp.Description("Free-form field notes stored with the scan"),
		),
	)
	s.AddTool(diagnoseTool, h.handleDiagnoseLeaf)

	// Tool: treatment_plan
	treatmentTool := mcp.NewTool("treatment_plan",
		mcp.WithDescription("Build a four-bucket treatment plan for a disease name/id or a severity tier label (e.g. 'Bud Rot', 'Critical Disease')."),
		mcp.WithString("disease",
			mcp.Required(),
			mcp.Description("Disease name, disease id or tier label. Use list_diseases to see names."),
		),
		mcp.WithString("nutrients",
			mcp.Description("Comma-separated deficiencies to treat: nitrogen, phosphorus, potassium, magnesium, iron"),
		),
		mcp.WithString("quality",
			mcp.Description("Image quality of the source photo; Poor adds a retake action"),
			mcp.DefaultString("Good"),
			mcp.Enum("Excellent", "Good", "Fair", "Poor"),
		),
	)
	s.AddTool(treatmentTool, h.handleTreatmentPlan)

	// Tool: predict_progression
	progressionTool := mcp.NewTool("predict_progression",
		mcp.WithDescription("Forecast the next severity stage, time to reach it, recovery probability and spread risk."),
		mcp.WithString("stage",
			mcp.Required(),
			mcp.Description("Severity tier (Healthy, Mild, Moderate, Severe, Critical, Lost) or a disease name"),
		),
	)
	s.AddTool(progressionTool, h.handlePredictProgression)

	// Tool: list_diseases
	listTool := mcp.NewTool("list_diseases",
		mcp.WithDescription("List catalog diseases with id, severity tier, symptoms and treatment steps."),
	)
	s.AddTool(listTool, h.handleListDiseases)

	// Tool: explain_pattern
	explainTool := mcp.NewTool("explain_pattern",
		mcp.WithDescription("Explain what a disease-pattern or nutrient flag in a diagnosis means and what to check in the field."),
		mcp.WithString("pattern_id",
			mcp.Required(),
			mcp.Description("Pattern or flag id, e.g. 'yellowing', 'bud_rot', 'potassium'"),
		),
	)
	s.AddTool(explainTool, h.handleExplainPattern)

	// Tool: scan_statistics
	statsTool := mcp.NewTool("scan_statistics",
		mcp.WithDescription("Scan history statistics (total, average confidence, healthy vs diseased). With user_id, also returns that user's recent scans."),
		mcp.WithNumber("user_id",
			mcp.Description("Restrict to one user; omit for all users"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Recent scans to return with user_id (default 10)"),
		),
	)
	s.AddTool(statsTool, h.handleScanStatistics)
}
